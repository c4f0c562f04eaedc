// Package stats registra contadores de resultado do solver: decisões do throttle
// (allowed/denied) e desfechos dos jobs (solved/failed, correct/incorrect).
//
// Implementações:
//   - MemoryStore: contadores em memória, útil para testes e desenvolvimento
//   - RedisStore: hashes no Redis com buckets por minuto e TTL
//
// Quem chama deve tratar erro de Record como best-effort.
package stats
