package orchestration

import (
	"fmt"
	"strings"
)

// GreetingReply answers a bare salutation.
const GreetingReply = "Hello! I'm your camera feed assistant. I can answer questions about " +
	"camera feeds, system configuration, encoding parameters and feed data. What would you like to know?"

// UnknownIntentReply answers a query whose intent could not be placed.
const UnknownIntentReply = "I'm not sure how to help with that. Please ask about camera feeds, " +
	"system configurations, or data analysis."

const extendSummaryPrompt = "This is a summary of the conversation so far: %s\n\n" +
	"Extend the summary to cover the new messages above."

const freshSummaryPrompt = "Write a concise summary of the conversation above."

func summaryInstruction(prior string) string {
	if strings.TrimSpace(prior) == "" {
		return freshSummaryPrompt
	}
	return fmt.Sprintf(extendSummaryPrompt, prior)
}

const classifierPrompt = `Classify the user query below into exactly one intent.

Query: %q

Intents:
- "greeting": ONLY a bare salutation such as "hi", "hello" or "hey", with nothing else.
- "data_query": asks for concrete data from the feed records, such as counts, lists,
  specific cameras, or anything phrased "how many", "which", "show me", "list", "count".
- "metadata_query": everything else, including schemas, field meanings, configuration,
  quality criteria, definitions and how something works.

Examples:
- "Hi" -> greeting
- "What does the CODEC field mean?" -> metadata_query
- "How does H265 encoding work?" -> metadata_query
- "How many cameras are in the Pacific region?" -> data_query
- "Which cameras use the H265 codec?" -> data_query

Respond with JSON only: {"intent": "<intent>", "confidence": <0..1>, "reasoning": "<short reason>"}`

func classifierInstruction(query string) string {
	return fmt.Sprintf(classifierPrompt, query)
}

// DataContract describes the relation the structured-query tool serves.
type DataContract struct {
	Table  string
	Fields []string
}

// DefaultDataContract is the camera feed table served by the feed tool server.
var DefaultDataContract = DataContract{
	Table: "camera_feeds",
	Fields: []string{
		"feed_id: camera identifier",
		"theater: region (PAC, EUR, CONUS, ME, AFR, ARC)",
		"frrate: frame rate",
		"res_w, res_h: resolution width and height",
		"codec: video codec (H264, H265, VP9, MPEG2, AV1)",
		"encr: encryption status",
		"lat_ms: latency in milliseconds",
		"modl_tag: model tag",
		"civ_ok: civilian status",
	},
}

const queryGenPrompt = `Write one SQL query that answers the user's question.

Question: %q

Relevant metadata:
%s

The table is named %q. Its fields are:
%s

Use COUNT(*) with a WHERE clause for counting questions and SELECT * with a
WHERE clause for listing questions. Return ONLY the SQL statement: no
commentary, no markdown, no code fences.`

func queryGenInstruction(query, hints string, contract DataContract) string {
	fields := make([]string, len(contract.Fields))
	for i, f := range contract.Fields {
		fields[i] = "- " + f
	}
	return fmt.Sprintf(queryGenPrompt, query, hints, contract.Table, strings.Join(fields, "\n"))
}

const synthesisPrompt = `Answer the user's question from the data below in a short,
conversational reply.

Question: %q

Data:
%s

Guidelines:
- Answer the question directly.
- For a count, say what the number represents.
- For a list, summarize the key findings instead of repeating every row.
- Never mention SQL, queries, tools or other internal mechanics.
- Reply with the answer text only.`

func synthesisInstruction(query, data string) string {
	return fmt.Sprintf(synthesisPrompt, query, data)
}
