package synth

import (
	"fmt"
	"strings"
)

const courseSystemPrompt = `You are an instructional designer who turns technical documents into self-paced courses.
Respond with a single valid JSON object only. Do not wrap it in code fences and do not add commentary.`

func courseUserPrompt(title, source string) string {
	var b strings.Builder
	b.WriteString("Create a comprehensive educational course from the document below.\n\n")
	b.WriteString("Return JSON with exactly this shape:\n")
	b.WriteString(`{
  "title": "Course title",
  "description": "2-3 sentence overview",
  "difficulty": "Beginner | Intermediate | Advanced",
  "objectives": ["Understand X", "Analyze Y", "Apply Z"],
  "modules": [
    {
      "id": "module-1",
      "title": "Module 1: Topic",
      "content": "# Heading\n\nMarkdown body...\n\n## Key Points\n- ...",
      "estimatedTime": 900
    }
  ]
}`)
	b.WriteString("\n\nRequirements:\n")
	b.WriteString("- 3 to 5 modules, ordered from foundations to advanced material.\n")
	b.WriteString("- Each module content is 300-500 words of markdown with headings and a key points list.\n")
	b.WriteString("- Objectives start with an action verb (Understand, Analyze, Apply, Evaluate, ...).\n")
	b.WriteString("- estimatedTime is the reading time of the module in seconds.\n")
	b.WriteString("- Use only facts stated in the document.\n")
	if t := strings.TrimSpace(title); t != "" {
		fmt.Fprintf(&b, "\nDocument title: %s\n", t)
	}
	b.WriteString("\nDocument:\n\"\"\"\n")
	b.WriteString(source)
	b.WriteString("\n\"\"\"\n")
	return b.String()
}

const quizSystemPrompt = `You write assessment questions for course modules. Return a single JSON object only.`

func quizUserPrompt(moduleTitle, content, excerpt string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create %d multiple-choice questions for the module %q.\n\n", count, moduleTitle)
	b.WriteString("Return JSON with this shape:\n")
	b.WriteString(`{"questions":[{"type":"multiple-choice","question":"...","options":["A","B","C","D"],"correctAnswer":"exact text of one option","explanation":"why it is correct"}]}`)
	b.WriteString("\n\nEach question has exactly four options and correctAnswer repeats one option verbatim.\n")
	b.WriteString("\nModule content:\n")
	b.WriteString(content)
	b.WriteString("\n")
	writeExcerpt(&b, excerpt)
	return b.String()
}

const flashcardSystemPrompt = `You write study flashcards for course modules. Return a single JSON object only.`

func flashcardUserPrompt(moduleTitle, content, excerpt string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create %d flashcards for the module %q.\n\n", count, moduleTitle)
	b.WriteString("Return JSON with this shape:\n")
	b.WriteString(`{"flashcards":[{"front":"term or question","back":"definition or answer","difficulty":1}]}`)
	b.WriteString("\n\ndifficulty is 1 (recall), 2 (understanding) or 3 (application).\n")
	b.WriteString("\nModule content:\n")
	b.WriteString(content)
	b.WriteString("\n")
	writeExcerpt(&b, excerpt)
	return b.String()
}

func writeExcerpt(b *strings.Builder, excerpt string) {
	if strings.TrimSpace(excerpt) == "" {
		return
	}
	b.WriteString("\nSource excerpt (for accuracy only, do not quote at length):\n")
	b.WriteString(excerpt)
	b.WriteString("\n")
}
