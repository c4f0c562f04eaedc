// Package browser renderiza páginas de quiz em um Chromium headless (chromedp)
// e baixa arquivos referenciados por HTTP simples.
//
// O browser é iniciado sob demanda na primeira página e encerrado com Close.
package browser
