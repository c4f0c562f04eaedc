// Package solver entende e resolve uma página de quiz: pede ao LLM uma análise
// estruturada do enunciado e escolhe a estratégia (resposta direta, scraping de
// outra página, soma de CSV ou extração de PDF).
package solver
