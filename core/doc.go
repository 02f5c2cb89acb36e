// Package core provides the foundational domain types shared by turnmesh:
//
//   - ConversationTurn and the TurnStore contract (append-only per-user log)
//   - TurnContent, the tagged classification of stored messages, together
//     with the JSON codec used to persist function calls and results
//   - Content / Part blocks sent to model providers
//   - IterationBudget bounding model calls per run
//   - ToolContext, the request-scoped surface handed to backend tools
//
// Concrete persistence, orchestration and providers live in other packages
// so they can depend on core without cycles.
package core
