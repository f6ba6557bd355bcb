package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
)

const synthesisSystemPrompt = `You are JD-Copilot, a Placement Cell Assistant for MBA students.
You act as a responsible member of the placement cell and answer ONLY from the retrieved job-description snippets.
If something is not present in the data, state clearly: "I could not find this information in the available documents."

Answering guidelines:
1. Ground every statement in the retrieved snippets. Never invent, assume, or guess.
2. Present answers in a professional, clear format addressed to MBA students.
3. When snippets overlap, merge the information coherently.
4. When a detail is missing, say "Not mentioned in the available documents." instead of filling it in.
5. Speak as a placement cell officer reporting from official documents, never in a role-play voice.
6. When describing a role, use these fields:
   - **Job Title:** ...
   - **Location:** ...
   - **Salary Range:** ...
   - **Skills Required:** ...
   - **Other Notes:** ...
7. If the question is not company-specific, aggregate across all documents.`

const fullDocumentInstruction = `FULL JOB DESCRIPTION REQUEST:
- Reconstruct the COMPLETE job description by combining every relevant snippet in order.
- Include all responsibilities, requirements, qualifications and benefits verbatim.
- Do NOT truncate or summarize.
- If parts of the document are missing from the snippets, say which parts are missing.
- Structure the response as a complete, readable job description.`

// companyModeInstruction restricts synthesis to a single company.
func companyModeInstruction(company string) string {
	return fmt.Sprintf(`COMPANY-SPECIFIC MODE: focus exclusively on %[1]s.
- Use ONLY snippets whose citation names %[1]s and ignore snippets from any other company.
- If no snippet concerns %[1]s, reply: "I could not find any information about %[1]s in the available documents."
- If information about %[1]s is partial, give what is available and state what is missing.`, company)
}

const crossCompanyModeInstruction = `STRATEGIC CONSULTANT MODE: analyze ALL available data across companies.
Provide market-wide insights, trends and cross-company recommendations.`

// BuildSynthesisPrompt returns the system and user prompts for a question.
// Context lines keep the order of the ranked passages.
func BuildSynthesisPrompt(question string, passages []domain.Passage, filters domain.QueryFilters, fullDocument bool) (string, string) {
	system := synthesisSystemPrompt
	if fullDocument {
		system += "\n\n" + fullDocumentInstruction
	}

	mode := crossCompanyModeInstruction
	if company := strings.TrimSpace(filters.Company); company != "" {
		mode = companyModeInstruction(company)
	}

	var b strings.Builder
	b.WriteString(mode)
	b.WriteString("\n\nCONTEXT:\n---------------------\n")
	b.WriteString(buildContextBlock(passages))
	b.WriteString("\n---------------------\n\nQUESTION: ")
	b.WriteString(question)
	return system, b.String()
}

func buildContextBlock(passages []domain.Passage) string {
	lines := make([]string, 0, len(passages))
	for _, p := range passages {
		lines = append(lines, citationTag(p.Metadata)+" "+p.Text)
	}
	return strings.Join(lines, "\n\n")
}

func citationTag(meta domain.ChunkMetadata) string {
	year := "?"
	if meta.Year > 0 {
		year = strconv.Itoa(meta.Year)
	}
	return fmt.Sprintf("[%s | %s | %s]", orUnknown(meta.Company), orUnknown(meta.Role), year)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "?"
	}
	return s
}
