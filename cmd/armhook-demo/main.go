// Command armhook-demo exercises the library end to end against functions
// compiled into this same binary, reproducing spec.md §8's worked
// scenarios without needing a second target process.
package main

import (
	"fmt"
	"os"
	"reflect"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vmsplit/armhook"
	"github.com/vmsplit/armhook/internal/arch"
)

// target is Scenario A's AArch64 leaf: simple enough that its prologue is
// almost certainly just the detour jump's worth of instructions, with no
// PC-relative loads the relocator needs to rewrite.
func target(x, y int32) int32 {
	return x + y - 1
}

// originalFn is repointed at the trampoline once the hook is installed;
// the detour calls through it to invoke the preserved original, the same
// shape as internal/declare's Slot.original but wired by hand here to
// keep the demo legible without pulling in reflection-based Define.
var originalFn func(int32, int32) int32

func detour(x, y int32) int32 {
	fmt.Printf("intercepted(%d, %d)\n", x, y)
	r := originalFn(x, y)
	fmt.Printf("orig returned %d\n", r)
	return r + 6
}

func funcAddr(fn interface{}) uint64 {
	return uint64(reflect.ValueOf(fn).Pointer())
}

func newRootCmd() *cobra.Command {
	var profileName string

	root := &cobra.Command{
		Use:   "armhook-demo",
		Short: "Exercises armhook's hook/unhook lifecycle against an in-process target",
	}

	root.PersistentFlags().StringVar(&profileName, "profile", "aarch64", "instruction profile: aarch64, arm32, thumb")

	run := &cobra.Command{
		Use:   "run",
		Short: "Install a hook, call the detour, then unhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := parseProfile(profileName)
			if err != nil {
				return err
			}

			mgr := armhook.NewManager(armhook.Config{
				Profile: profile,
				Logger:  logrus.WithField("component", "armhook-demo"),
			})

			rec, callable, err := mgr.Hook(funcAddr(target), funcAddr(detour))
			if err != nil {
				return fmt.Errorf("hook: %w", err)
			}
			setOriginal(callable)

			result := detour(3, 4)
			fmt.Printf("detour(3, 4) = %d\n", result)

			if err := mgr.Unhook(rec); err != nil {
				return fmt.Errorf("unhook: %w", err)
			}
			fmt.Printf("after unhook, target(3, 4) = %d\n", target(3, 4))
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Install a hook then print the registry's Describe() snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := parseProfile(profileName)
			if err != nil {
				return err
			}

			mgr := armhook.NewManager(armhook.Config{Profile: profile})
			rec, _, err := mgr.Hook(funcAddr(target), funcAddr(detour))
			if err != nil {
				return fmt.Errorf("hook: %w", err)
			}
			defer mgr.Unhook(rec)

			for _, info := range mgr.Describe() {
				fmt.Printf("target=0x%x detour=0x%x trampoline=0x%x state=%v\n",
					info.Target, info.Detour, info.Trampoline, info.State)
			}
			return nil
		},
	}

	root.AddCommand(run, list)
	return root
}

// setOriginal repeats internal/declare's funcval repointing trick inline,
// since main intentionally avoids depending on internal/declare to keep
// this demo's control flow flat and readable.
func setOriginal(trampoline uint64) {
	originalFn = makeCallable(trampoline)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "armhook-demo:", err)
		os.Exit(1)
	}
}

func parseProfile(name string) (arch.ID, error) {
	switch name {
	case "aarch64", "":
		return arch.AArch64, nil
	case "arm32":
		return arch.ARM32, nil
	case "thumb":
		return arch.Thumb, nil
	default:
		return 0, fmt.Errorf("unknown profile %q", name)
	}
}
