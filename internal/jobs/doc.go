// Package jobs executa cadeias de quizzes em background.
//
// Cada POST /solve aceito vira um Job: busca a página, analisa, resolve,
// submete e segue a próxima URL devolvida até a cadeia acabar, estourar o
// prazo ou atingir o máximo de passos. O número de jobs simultâneos é limitado
// por um throttle.SlotPool; o estado fica num Store (memória ou Redis).
package jobs
