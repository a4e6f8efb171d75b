package layout

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// definitionSchema constrains imported layout files before they are decoded
// into a Definition. Mapping keys and values must be single characters;
// the remappable-key check happens later in Definition.Validate.
const definitionSchema = `
{
	name:             string & !=""
	description?:     string
	allow_conflicts?: bool
	mapping: {
		[string & strings.MinRunes(1) & strings.MaxRunes(1)]: string & strings.MinRunes(1) & strings.MaxRunes(1)
	}
}
`

const definitionSchemaPrelude = `import "strings"
`

// validateDefinitionSchema checks a decoded layout file against the CUE
// schema.
func validateDefinitionSchema(raw any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(definitionSchemaPrelude + definitionSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile layout schema: %w", err)
	}
	val := ctx.Encode(raw)
	if err := val.Err(); err != nil {
		return fmt.Errorf("layout file is not schema-checkable: %w", err)
	}
	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("layout file rejected by schema: %w", err)
	}
	return nil
}
