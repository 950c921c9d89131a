/*
Package player implements the terminal front end for vine sessions.

It bridges the interpreter loop and a line-oriented terminal: dialogue and
stage directions are printed as they land, choice menus are numbered, and a
background pump turns stdin lines into session events without blocking the
loop's timers.

# Key Components

  - Player: the orchestrator owning IO, rendering and the input pump.
  - Presenter: a ports.Presenter hook that wakes the render loop whenever
    the session applies a patch, so timed waits and fades repaint without
    polling.
  - RenderFunc: decouples markdown styling (glamour in the CLI) from the
    loop itself.

# Usage

	p := player.New(
		player.WithLogger(logger),
	)
	eng, _ := vine.New("./my-story", vine.WithPresenter(p.Presenter()))
	sess, _ := eng.NewSession(ctx)
	if err := p.Run(ctx, sess); err != nil {
		log.Fatal(err)
	}
*/
package player
