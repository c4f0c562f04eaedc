// Package quiz define os tipos de domínio do solver (requisição, página, análise,
// submissão) e os helpers de texto usados para localizar links e números no
// conteúdo renderizado do quiz.
//
// Este pacote não depende de net/http, do browser nem do cliente LLM.
package quiz
