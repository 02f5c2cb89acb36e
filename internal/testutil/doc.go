// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when constructing conversation histories and to check
// TurnStore implementations against one shared contract. Not intended for
// production usage.
package testutil
