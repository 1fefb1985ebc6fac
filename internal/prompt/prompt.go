// Package prompt assembles the deterministic instruction/context bundle
// sent to the completion capability for one turn.
package prompt

import (
	"fmt"
	"strings"

	"github.com/lorewarden/lorewarden/internal/knowledge"
	"github.com/lorewarden/lorewarden/internal/session"
)

// RefusalPhrase is the exact answer the model is instructed to give when a
// question is not derivable from the knowledge base. A reply equal to this
// phrase is a normal successful turn, not an error.
const RefusalPhrase = "I cannot answer that based on the available knowledge base."

// systemTemplate is the fixed restriction instruction. The %s verbs are the
// refusal phrase and the corpus text.
const systemTemplate = `You are a domain-restricted AI agent.
You MUST only answer using the knowledge base below.
If the answer is not found in the knowledge base, respond with:
%q

Knowledge Base:
%s`

// Turn is one prior message carried into the bundle.
type Turn struct {
	Role session.Role
	Text string
}

// Bundle is the fully-assembled model input for one turn: the restriction
// instruction, the prior history in order, and the new user question last.
type Bundle struct {
	System string
	Turns  []Turn
}

// Build constructs the bundle for a new question against the given history.
// Pure function of its inputs: no I/O, same inputs produce the same bundle.
func Build(kb *knowledge.Base, history []session.Message, question string) Bundle {
	turns := make([]Turn, 0, len(history)+1)
	for _, m := range history {
		turns = append(turns, Turn{Role: m.Role, Text: m.Content})
	}
	turns = append(turns, Turn{Role: session.RoleUser, Text: question})

	return Bundle{
		System: fmt.Sprintf(systemTemplate, RefusalPhrase, kb.Text()),
		Turns:  turns,
	}
}

// Refused reports whether an answer is a domain-restriction refusal. The
// check is deliberately loose (case-insensitive substring) since models can
// decorate the mandated phrase.
func Refused(answer string) bool {
	return strings.Contains(strings.ToLower(answer), "cannot answer")
}
