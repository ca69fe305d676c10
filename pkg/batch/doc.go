// Package batch groups pending items for sending.
//
// Split cuts an ordered slice into fixed-size chunks so no single request
// grows past a configured limit. Buffer accumulates items between sends and
// tracks when the next send is due.
package batch
