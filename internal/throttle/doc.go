// Package throttle fornece middlewares HTTP (net/http) de rate limit por cliente
// e de limite de concorrência, além do pool de vagas usado pelos jobs de solve.
//
// Fluxo no servidor:
//
//  1. Extrai a chave do cliente (header/XFF/IP)
//  2. Decide allow/deny com o token bucket da chave
//  3. Se bloqueado, responde 429 (rate limit) ou 503 (concorrência) em JSON
//  4. Se permitido, chama o próximo handler
//
// Cada decisão é registrada no stats.Store configurado (best-effort).
package throttle
