package advisor

import "strings"

const reviewPromptBase = "You are a careful bookkeeping assistant reviewing a user's personal transactions.\n\n" +
	"Task:\n" +
	"- Look for wrong or missing categories, unclear descriptions and income/expense mix-ups.\n" +
	"- Only suggest a change when you are confident it improves the record.\n\n" +
	"Output:\n" +
	"- STRICT JSON only, no Markdown, no code fences.\n" +
	"- A single object: {\"suggestions\": [ ... ]}\n" +
	"- Each suggestion has \"transaction_id\" (copied from the input \"id\"), and any of\n" +
	"  \"category\", \"description\", \"type\" (\"income\", \"expense\" or \"transfer\"), plus a short \"reason\".\n" +
	"- Leave out fields you would not change. Leave out transactions that need no change.\n"

func buildReviewPrompt(batchJSON, instructions string) string {
	var b strings.Builder
	b.WriteString(reviewPromptBase)
	if instructions = strings.TrimSpace(instructions); instructions != "" {
		b.WriteString("\nAdditional instructions from the user:\n")
		b.WriteString(instructions)
		b.WriteString("\n")
	}
	b.WriteString("\nTransactions:\n")
	b.WriteString(batchJSON)
	b.WriteString("\n")
	return b.String()
}

func buildReceiptPrompt(categories []string) string {
	var b strings.Builder
	b.WriteString("Read the attached receipt and return STRICT JSON only, no Markdown.\n")
	b.WriteString("Return one object with:\n")
	b.WriteString("- \"date\": purchase date as YYYY-MM-DD, or null\n")
	b.WriteString("- \"amount\": the total paid as a positive number\n")
	b.WriteString("- \"description\": the merchant name\n")
	b.WriteString("- \"category\": the best matching category\n")
	b.WriteString("- \"type\": \"expense\" unless the receipt is clearly a refund, then \"income\"\n")
	if len(categories) > 0 {
		b.WriteString("\nPick the category from: ")
		b.WriteString(strings.Join(categories, ", "))
		b.WriteString("\n")
	}
	return b.String()
}
