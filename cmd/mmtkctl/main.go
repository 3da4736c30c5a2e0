// Command mmtkctl is an operator CLI for introspecting a running binding
// instance: its pinned-object set, exported constants, and accumulated
// warnings. Grounded on cmd/viewcore/main.go's command dispatch and
// tabwriter-based tabular output, and cmd/viewcore/objref.go's
// cobra.Command subcommand style (flags read via cmd.Flags().GetBool).
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmtk-go/nativebinding/binding"
	"github.com/mmtk-go/nativebinding/internal/vmlog"
)

// target is the Binding instance mmtkctl introspects. In the real
// binding, a process embeds this CLI alongside its own already-live
// singleton; standalone invocation here operates on a freshly constructed
// one for demonstration and testing.
var target = binding.New()

func main() {
	root := &cobra.Command{
		Use:   "mmtkctl",
		Short: "Inspect a pluggable-memory-manager binding instance",
	}
	root.AddCommand(statusCmd(), pinnedCmd(), constantsCmd(), layoutCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print initialization state and accumulated warnings",
		Run: func(cmd *cobra.Command, args []string) {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				exitf("%v\n", err)
			}
			t := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
			fmt.Fprintf(t, "initialized\t%v\n", target.Initialized())
			fmt.Fprintf(t, "pinned objects\t%d\n", len(target.PinnedObjects()))
			t.Flush()
			if verbose {
				for _, w := range vmlog.Warnings() {
					fmt.Fprintf(os.Stderr, "WARNING: %s\n", w)
				}
			}
		},
	}
	cmd.Flags().Bool("verbose", false, "also print accumulated warnings")
	return cmd
}

func pinnedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pinned",
		Short: "List currently pinned objects",
		Run: func(cmd *cobra.Command, args []string) {
			for _, obj := range target.PinnedObjects() {
				fmt.Println(obj)
			}
		},
	}
}

func constantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "constants",
		Short: "Print the exported link-time constants",
		Run: func(cmd *cobra.Command, args []string) {
			c := target.Constants()
			t := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
			fmt.Fprintf(t, "GLOBAL_SIDE_METADATA_BASE_ADDRESS\t0x%x\n", c.GlobalSideMetadataBaseAddress)
			fmt.Fprintf(t, "GLOBAL_SIDE_METADATA_VM_BASE_ADDRESS\t0x%x\n", c.GlobalSideMetadataVMBaseAddress)
			fmt.Fprintf(t, "VO_BIT_ADDRESS\t0x%x\n", c.VOBitAddress)
			fmt.Fprintf(t, "MMTK_MARK_COMPACT_HEADER_RESERVED_IN_BYTES\t%d\n", c.MarkCompactHeaderReservedBytes)
			fmt.Fprintf(t, "FREE_LIST_ALLOCATOR_SIZE\t%d\n", c.FreeListAllocatorSize)
			t.Flush()
		},
	}
}

func layoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Print the object-model layout assembled from the RTTI-group upcalls",
		Run: func(cmd *cobra.Command, args []string) {
			l := target.Layout()
			t := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
			fmt.Fprintf(t, "array_ids\t[%d, %d]\n", l.ArrayIDsMin, l.ArrayIDsMax)
			fmt.Fprintf(t, "weak_ref_ids\t[%d, %d]\n", l.WeakRefIDsMin, l.WeakRefIDsMax)
			fmt.Fprintf(t, "weak_ref_field_offset\t%d\n", l.WeakRefFieldOffset)
			fmt.Fprintf(t, "object_array_id\t%d\n", l.ObjectArrayID)
			fmt.Fprintf(t, "allocation_alignment\t%d\n", l.AllocationAlignment)
			fmt.Fprintf(t, "uses_lock_words\t%v\n", l.UsesLockWords)
			fmt.Fprintf(t, "object_header_size\t%d\n", l.ObjectHeaderSize)
			fmt.Fprintf(t, "array_header_size\t%d\n", l.ArrayHeaderSize)
			t.Flush()
			if target.Upcalls() == nil {
				fmt.Fprintln(os.Stderr, "WARNING: binding has no published upcalls; layout is all zero-valued")
			}
		},
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(2)
}
