package pipeline

import (
	"strings"

	"github.com/ternarybob/perquire/internal/common"
	"github.com/ternarybob/perquire/internal/models"
)

// Prompt templates are fixed and selected by identifier at startup. They
// embed the retrieved context and the raw question via the {context} and
// {question} placeholders.

const conciseTemplate = `You are an assistant for question-answering tasks. Use the following pieces of retrieved context to answer the question. If you don't know the answer, just say that you don't know. Use three sentences maximum and keep the answer concise.

Question: {question}

Context: {context}

Answer:`

const groundedTemplate = `You are an assistant for question-answering tasks with access to a knowledge base of retrieved documents.

When answering:
1. Use only the provided context documents when relevant
2. Cite the source of each claim where possible
3. If the context doesn't contain relevant information, say so clearly
4. Be concise and accurate

Context:
{context}

Question: {question}

Answer:`

var templates = map[string]string{
	"qa/concise":  conciseTemplate,
	"qa/grounded": groundedTemplate,
}

// Template is a fixed prompt template selected by identifier
type Template struct {
	ID   string
	text string
}

// TemplateByID resolves a prompt template identifier. Unknown identifiers are
// a configuration error.
func TemplateByID(id string) (*Template, error) {
	text, ok := templates[id]
	if !ok {
		known := make([]string, 0, len(templates))
		for k := range templates {
			known = append(known, k)
		}
		return nil, common.NewConfigError("unknown prompt template %q (known: %s)", id, strings.Join(known, ", "))
	}
	return &Template{ID: id, text: text}, nil
}

// Render embeds the prompt context into the template
func (t *Template) Render(pc models.PromptContext) string {
	r := strings.NewReplacer(
		"{context}", pc.Context,
		"{question}", pc.Question,
	)
	return r.Replace(t.text)
}
