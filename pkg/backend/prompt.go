package backend

import "fmt"

var instructions = map[ConvertType]string{
	Translate: "Translate the following text into natural English. If it is already English, translate it into Japanese.",
	Revision:  "Proofread the following text. Fix grammar, spelling and awkward phrasing while keeping its meaning and tone.",
	Summarize: "Summarize the following text in a few concise sentences.",
	Formalize: "Rewrite the following text in a polite, formal business register.",
	Heartful:  "Rewrite the following text so it sounds warm, kind and considerate.",
	Spark:     "Rewrite the following text so it is more vivid and engaging, adding energy without changing the facts.",
}

// Instruction is the system instruction for ct.
func Instruction(ct ConvertType) string {
	if s, ok := instructions[ct]; ok {
		return s
	}
	return instructions[DefaultConvertType]
}

// Prompt combines the instruction for ct with text into a single prompt for
// backends that take one string.
func Prompt(text string, ct ConvertType) string {
	return fmt.Sprintf("%s Reply with the rewritten text only.\n\n%s", Instruction(ct), text)
}
