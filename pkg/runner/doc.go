/*
Package runner drives a Workbench from a line-oriented terminal or pipe.

It acts as the bridge between the workbench and the outside world: every
change of the workbench is presented through an IOHandler, and every line
read from it is parsed as a playback command.

# Key Components

  - Runner: The main loop. It owns all output so handlers never write concurrently.
  - IOHandler: Decouples how the view is presented and how commands arrive.
  - TextHandler: Boxed panels and a source listing for interactive use.
  - JSONHandler: One JSON object per line for scripts and other programs.

# Usage

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
		runner.WithExecuteOnStart(true),
	)

	if err := r.Run(ctx, workbench); err != nil {
		log.Fatal(err)
	}
*/
package runner
