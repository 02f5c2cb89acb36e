// Package model defines the provider‑agnostic abstractions for interacting
// with language models inside turnmesh.
//
// Core goals:
//   - One synchronous Generate call per orchestration iteration
//   - Normalize tool / function call representation (ToolDefinition, core.FunctionCallPart)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight scripting for tests (MockModel)
//
// Providers (Gemini, OpenAI, Anthropic) implement the Model interface from
// this package so the orchestrator remains decoupled from vendor SDKs.
package model
