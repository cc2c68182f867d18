package runner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CommandKind identifies a runner command.
type CommandKind int

const (
	CmdToggle CommandKind = iota + 1
	CmdPlay
	CmdPause
	CmdNext
	CmdPrevious
	CmdReset
	CmdGoto
	CmdExecute
	CmdHelp
	CmdQuit
)

// Command is a parsed input line.
type Command struct {
	Kind CommandKind
	// Step is the 1-based target of CmdGoto.
	Step int
}

// ErrUnknownCommand is returned for lines that are not a command.
var ErrUnknownCommand = errors.New("unknown command")

// Help lists the commands understood by ParseCommand.
const Help = `Commands:
  n, next          step forward
  p, prev          step back
  <enter>, space   play or pause
  play, pause      start or stop autoplay
  g N, goto N      jump to step N
  r, reset         back to step 1
  e, exec          run the source again
  h, help          show this help
  q, quit          leave`

// ParseCommand maps an input line onto a command. An empty line toggles playback.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{Kind: CmdToggle}, nil
	}

	name, args := fields[0], fields[1:]
	switch name {
	case "n", "next":
		return noArgs(Command{Kind: CmdNext}, name, args)
	case "p", "prev", "previous":
		return noArgs(Command{Kind: CmdPrevious}, name, args)
	case "space":
		return noArgs(Command{Kind: CmdToggle}, name, args)
	case "play":
		return noArgs(Command{Kind: CmdPlay}, name, args)
	case "pause":
		return noArgs(Command{Kind: CmdPause}, name, args)
	case "r", "reset":
		return noArgs(Command{Kind: CmdReset}, name, args)
	case "e", "exec", "run":
		return noArgs(Command{Kind: CmdExecute}, name, args)
	case "h", "help", "?":
		return noArgs(Command{Kind: CmdHelp}, name, args)
	case "q", "quit", "exit":
		return noArgs(Command{Kind: CmdQuit}, name, args)
	case "g", "goto":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%s needs a step number", name)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return Command{}, fmt.Errorf("invalid step %q: steps are numbered from 1", args[0])
		}
		return Command{Kind: CmdGoto, Step: n}, nil
	}
	return Command{}, fmt.Errorf("%w: %q (type h for help)", ErrUnknownCommand, name)
}

func noArgs(cmd Command, name string, args []string) (Command, error) {
	if len(args) > 0 {
		return Command{}, fmt.Errorf("%s takes no arguments", name)
	}
	return cmd, nil
}
