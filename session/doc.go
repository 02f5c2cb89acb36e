// Package session houses concrete implementations of core.TurnStore.
// The interface itself (and the ConversationTurn struct) live in the core
// package to centralize domain contracts. Keeping only implementations here
// prevents higher level packages (history, flow) from depending on concrete
// storage.
//
// Durable backends live in sub‑packages (see session/sqlite) without changing
// any calling code – only the wiring layer decides which one to instantiate.
package session
