/*
Package stepview is an interactive player for execution traces.

An external execution backend runs a Python, JavaScript or C program and
returns a trace: an ordered list of steps, each a full snapshot of the call
stack, variables and cumulative output. stepview turns that static trace into
a scrubbable, auto-playing visualization.

# Concept

A Workbench wires four parts together:

  - an editor buffer holding the source text and language (pkg/editor);
  - an execution gateway that submits the source and receives the trace (pkg/client);
  - a playback controller that owns the cursor and autoplay timer (pkg/playback);
  - a renderer that projects the current step into panels (pkg/render).

The Workbench adds what none of the parts can decide alone: only one execution
is in flight at a time, a new execution aborts the previous one, a failed
request moves the workbench into an explicit error phase, and every cursor
move highlights the step's source line in the editor.

# Usage

	gw, err := client.New("http://localhost:8000")
	if err != nil {
		log.Fatal(err)
	}

	wb := stepview.New(
		stepview.WithGateway(gw),
		stepview.WithSource("print('hi')", domain.LanguagePython),
	)
	defer wb.Close()

	if _, err := wb.Execute(ctx); err != nil {
		log.Printf("execution failed: %v", err)
	}
	wb.Play()

	screen := wb.Screen()
	fmt.Print(render.NewTerminal().Render(screen))

Front ends (terminal runner, HTTP service, MCP server) live under pkg/ and
cmd/stepview.
*/
package stepview
