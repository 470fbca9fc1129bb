package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/tagwm/tagwm/internal/ipc"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: tagwm daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: tagwm daemon")
			os.Exit(2)
		}
		os.Exit(runDaemon())
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "tags":
		os.Exit(runTags(os.Args[2:]))
	case "screens":
		os.Exit(runScreens(os.Args[2:]))
	case "cmd":
		os.Exit(runCmd(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "version":
		fmt.Println("tagwm " + version)
		os.Exit(0)
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tagwm <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Run the window manager (foreground)")
	fmt.Fprintln(w, "  status              Show the full window manager snapshot")
	fmt.Fprintln(w, "  windows             List managed windows")
	fmt.Fprintln(w, "  tags                List tags")
	fmt.Fprintln(w, "  screens             List screens and their workspaces")
	fmt.Fprintln(w, "  cmd <name> [arg]    Send a command to the running daemon")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  version             Print version")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'tagwm <command> --help' for command-specific options.")
}

// wantJSON decides output format: an explicit flag wins, otherwise piped
// output gets JSON and a terminal gets the human listing.
func wantJSON(flagged bool) bool {
	if flagged {
		return true
	}
	return !term.IsTerminal(int(os.Stdout.Fd()))
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Output the snapshot as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tagwm status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show the daemon's snapshot via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.Status()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if wantJSON(*jsonOut) {
		return printJSON(status)
	}

	fmt.Printf("active_workspace: %d\n", status.ActiveWorkspace)
	fmt.Printf("windows:          %d\n", len(status.Windows))
	for _, s := range status.Screens {
		state := "active"
		if s.Parked {
			state = "parked"
		}
		fmt.Printf("screen %-12s %s (%s)\n", s.Name, s.Geometry, state)
	}
	for _, t := range status.Tags {
		marker := " "
		if t.Displayed {
			marker = "*"
		}
		fmt.Printf("tag %s %-10s %-14s %d windows\n", marker, t.Name, t.Layout, t.Windows)
	}
	return 0
}

func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Output windows as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tagwm windows [--json]")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	windows, err := client.Windows()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if wantJSON(*jsonOut) {
		return printJSON(windows)
	}

	for _, w := range windows {
		flags := ""
		if w.Focused {
			flags += "F"
		}
		if w.Floating {
			flags += "~"
		}
		if w.Urgent {
			flags += "!"
		}
		if !w.Visible {
			flags += "."
		}
		fmt.Printf("%-10d %-3s [%s] %-20s %s\n",
			w.ID, flags, strings.Join(w.Tags, ","), w.Geometry, w.Name)
	}
	return 0
}

func runTags(args []string) int {
	fs := flag.NewFlagSet("tags", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Output tags as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tagwm tags [--json]")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	tags, err := client.Tags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if wantJSON(*jsonOut) {
		return printJSON(tags)
	}

	for _, t := range tags {
		marker := " "
		if t.Displayed {
			marker = "*"
		}
		label := t.Name
		if t.Label != "" {
			label = fmt.Sprintf("%s (%s)", t.Name, t.Label)
		}
		fmt.Printf("%s %-14s %-14s %d windows\n", marker, label, t.Layout, t.Windows)
	}
	return 0
}

func runScreens(args []string) int {
	fs := flag.NewFlagSet("screens", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Output screens as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tagwm screens [--json]")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	screens, err := client.Screens()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if wantJSON(*jsonOut) {
		return printJSON(screens)
	}

	for _, s := range screens {
		state := "active"
		if s.Parked {
			state = "parked"
		}
		fmt.Printf("%-14s %-20s %s\n", s.Name, s.Geometry, state)
	}
	return 0
}

func runCmd(args []string) int {
	fs := flag.NewFlagSet("cmd", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tagwm cmd <name> [arg]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Send a command to the running daemon, e.g.:")
		fmt.Fprintln(os.Stderr, "  tagwm cmd goto-tag 3")
		fmt.Fprintln(os.Stderr, "  tagwm cmd focus-window-next")
		fmt.Fprintln(os.Stderr, "  tagwm cmd set-layout monocle")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return 2
	}

	name := fs.Arg(0)
	arg := ""
	if fs.NArg() == 2 {
		arg = fs.Arg(1)
	}

	client := ipc.NewClient()
	if err := client.Run(name, arg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
