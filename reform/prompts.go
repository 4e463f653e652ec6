package reform

import "fmt"

const reformulateSystemPrompt = `You expand search queries for an academic paper search engine covering computational linguistics and NLP research.

Given query text, produce %d diverse search queries that together cover the information need: a close paraphrase, a subtopic or methodological angle, and a keyword-style expansion using field terminology.

Respond with a single JSON object:

{"queries": ["...", "...", "..."]}

Each query must be short, self-contained, and suitable for semantic search. Respond with the JSON object only.`

const reformulateFromPaperPrompt = `You expand search queries for an academic paper search engine covering computational linguistics and NLP research.

The text below is the title and abstract of a paper the user wants more papers like. Produce %d diverse search queries capturing its main topic, its method, and its application area.

Respond with a single JSON object:

{"queries": ["...", "...", "..."]}

Each query must be short, self-contained, and suitable for semantic search. Respond with the JSON object only.`

func reformulatePrompt(n int) string {
	return fmt.Sprintf(reformulateSystemPrompt, n)
}

func fromPaperPrompt(n int) string {
	return fmt.Sprintf(reformulateFromPaperPrompt, n)
}
