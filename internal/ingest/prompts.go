package ingest

import "fmt"

// identifySystemPrompt drives the first pass over a paper: find every
// distinct synthesis procedure and return name plus verbatim snippet.
const identifySystemPrompt = `You are an expert chemist and a data parsing specialist.
Your task is to read the provided scientific paper text and identify every distinct
synthesis procedure for a Metal-Organic Framework (MOF).
You MUST return a single JSON object with one key, "syntheses", which contains a list
of objects. Each object in the list must have two keys: "mof_name" (the name of the
MOF, or a descriptive name if not specified) and "experimental_text" (the specific,
verbatim text snippet from the paper that describes its synthesis).
If no synthesis procedures are found, return an empty list: {"syntheses": []}.`

// extractSystemPrompt drives the second pass over a single snippet: pull the
// parameters into a fixed schema.
const extractSystemPrompt = `You are an expert chemist.
Your task is to extract key synthesis parameters from the provided text snippet.
You MUST return the information in a single, valid JSON object.
The JSON structure must strictly follow this schema:
{"mof_name": "string or null",
 "metal_source": {"formula": "string or null", "molar_amount": "string or null"},
 "organic_linker": {"name": "string or null", "molar_amount": "string or null"},
 "synthesis_method": "string, e.g., 'Solvothermal', 'Hydrothermal'",
 "solvent": "list of strings or null",
 "temperature_celsius": "integer or null",
 "time_hours": "integer or null",
 "modulator": "string or null",
 "yield": "string or null",
 "notes": "any other critical synthesis details or observations, like pH, activation procedure etc."}`

func identifyUserPrompt(fullText string) string {
	return fmt.Sprintf("Please identify all distinct MOF synthesis procedures from the following text:\n\n---\n\n%s", fullText)
}

func extractUserPrompt(snippet string) string {
	return fmt.Sprintf("Please extract the synthesis parameters from this text snippet:\n\n---\n\n%s", snippet)
}
