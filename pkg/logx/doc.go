// Package logx configures taskmill's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Optional mirror sink (min-level + rate limiting) for forwarding
//     important lines to an operator-provided writer
package logx
