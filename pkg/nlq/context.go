package nlq

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/datalens-ai/datalens-engine/pkg/schema"
)

// maxContextSampleValues bounds literal values echoed per column.
const maxContextSampleValues = 3

// RenderSchemaContext renders the uniform schema view as the textual context
// the generation collaborator consumes: one block per table with the entity
// hint (singularized table name), columns with types and nullability, and a
// few literal sample values.
func RenderSchemaContext(desc *schema.Descriptor) string {
	var b strings.Builder

	for i, table := range desc.Tables {
		if i > 0 {
			b.WriteString("\n")
		}
		entity := inflection.Singular(table.Name)
		fmt.Fprintf(&b, "Table %q (each row is one %s, %d rows):\n", table.Name, entity, table.RowCount)

		for _, col := range table.Columns {
			nullability := "NOT NULL"
			if col.Nullable {
				nullability = "NULLABLE"
			}
			fmt.Fprintf(&b, "  - %s %s %s", col.Name, col.Type, nullability)

			if len(col.SampleValues) > 0 {
				samples := col.SampleValues
				if len(samples) > maxContextSampleValues {
					samples = samples[:maxContextSampleValues]
				}
				parts := make([]string, len(samples))
				for j, v := range samples {
					parts[j] = fmt.Sprintf("%v", v)
				}
				fmt.Fprintf(&b, " (e.g. %s)", strings.Join(parts, ", "))
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

// systemPrompt frames the collaborator's task. Execution-side safety does
// not depend on the model honoring it; generated text is validated like any
// other query.
const systemPrompt = `You translate natural-language questions into a single read-only SQL SELECT statement for the schema provided. Reply with the SQL statement only, no explanation. Never use INSERT, UPDATE, DELETE, DROP, CREATE, ALTER, or any other mutating statement.`

// buildUserPrompt pairs the schema context with the question.
func buildUserPrompt(schemaContext, question string) string {
	return "Schema:\n" + schemaContext + "\nQuestion: " + question
}

// ExtractQueryText strips markdown code fences and surrounding noise from a
// collaborator reply, returning the bare query text.
func ExtractQueryText(reply string) string {
	text := strings.TrimSpace(reply)

	if start := strings.Index(text, "```"); start >= 0 {
		rest := text[start+3:]
		// Drop an optional language tag on the fence line.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			tag := strings.TrimSpace(rest[:nl])
			if len(tag) <= 10 && !strings.ContainsAny(tag, " \t") {
				rest = rest[nl+1:]
			}
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		text = strings.TrimSpace(rest)
	}

	return text
}
