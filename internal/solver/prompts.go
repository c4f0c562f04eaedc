package solver

import "fmt"

const (
	analyzeSystem = "You are a precise quiz analyzer. Always respond with valid JSON."
	simpleSystem  = "You are a quiz solver. Provide concise, accurate answers."
	scrapeSystem  = "You are a web scraping expert. Always respond with valid JSON."
	extractSystem = "You are a data extraction expert."
	pdfSystem     = "Extract precise answers from PDF content."
)

func analyzePrompt(question string) string {
	return fmt.Sprintf(`You are a quiz analysis expert. Analyze this quiz question and provide a structured response.

Quiz Question:
%s

Provide your analysis in JSON format with these fields:
1. "task_type": What type of task is this? (data_analysis, pdf_extraction, web_scraping, visualization, calculation, text_question)
2. "files_to_download": List of file URLs mentioned in the question (empty list if none)
3. "submit_url": The URL where the answer should be submitted
4. "quiz_url": The original quiz URL (extract from the question)
5. "instructions": Brief summary of what needs to be done
6. "answer_format": What format should the answer be? (number, string, boolean, object, base64_file)

Respond ONLY with valid JSON, no markdown formatting.`, question)
}

func simplePrompt(question, instructions, format string) string {
	return fmt.Sprintf(`Solve this quiz question and provide the answer.

Quiz Question:
%s

Instructions: %s
Expected answer format: %s

Provide ONLY the answer value, no explanation. Format your response as JSON with a single field "answer".`, question, instructions, format)
}

func scrapeTargetPrompt(question string) string {
	return fmt.Sprintf(`Look at this quiz question and tell me what URL needs to be scraped.

Quiz:
%s

Respond with JSON containing:
1. "scrape_url": The URL/path that needs to be scraped (if relative, include it as-is)
2. "what_to_find": What information to extract from that page

Respond ONLY with valid JSON.`, question)
}

func scrapeExtractPrompt(question, whatToFind, scraped string) string {
	return fmt.Sprintf(`Extract the answer from this scraped content.

Original Question: %s
What to find: %s

Scraped Content:
%s

Extract ONLY the answer value. Respond with JSON containing a single field "answer".`, question, whatToFind, scraped)
}

func pdfPrompt(question, content string) string {
	return fmt.Sprintf(`Extract the answer from this PDF.

Question: %s

PDF Content:
%s

Respond: {"answer": <value>}

JSON only.`, question, content)
}
