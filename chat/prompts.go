package chat

import "fmt"

// rewriteTemplate asks the model to answer the query from retrieved context.
// Its answer becomes the content of the final user message.
const rewriteTemplate = `Answer my question based on the following context:
    %s
    
    question:%s
    Answer:`

// BuildRewritePrompt embeds the retrieved context and the user's query into
// the rewrite instruction.
func BuildRewritePrompt(context, query string) string {
	return fmt.Sprintf(rewriteTemplate, context, query)
}
