/*
Package dsl provides a fluent builder for constructing story documents in
Go instead of YAML. It is aimed at tests, generated content, and embedding
small stories in tools, with the compiler's defaults (command ids, start
scene) filled in automatically.

Example usage:

	b := dsl.NewStory("demo").Title("Demo Story")
	b.Var("v_name", "name", domain.VarString, "")

	intro := b.Scene("intro").Name("Intro")
	intro.Narrate("A knock at the door.")
	intro.Ask("Who's there?", "v_name")
	intro.Say("c_ana", "Come in, {name}.")
	intro.Choice(
		dsl.Opt("o_in", "Step inside").To("hall"),
		dsl.Opt("o_run", "Run").To("street"),
	)

	b.Scene("hall").Narrate("Warm light.").End()
	b.Scene("street").Narrate("Cold rain.").End()

	loader, err := b.Loader()
	// vine.New("", vine.WithLoader(loader))
*/
package dsl
