// Package playback provides per-scope audio playback queues for
// Wavecue Core.
//
// Each scope gets one Player: a FIFO queue feeding a single voice
// connection, so at most one item plays per scope at any instant. The
// Manager creates players lazily and is the entry point the routine
// engine and the ops API enqueue through.
//
// Player lifecycle:
//
//	Idle ──add──▶ Connecting ──▶ Playing ──▶ Connected-Idle ──timer──▶ Idle
//	                  │              ▲              │
//	                  │ (next item)  └──────────────┘
//	                  ▼
//	         connect failure drops the head and tries the next item
//
// A connected player with an empty queue arms an idle-disconnect
// timer; adding an item or reconnecting cancels it, and it only tears
// the connection down if the player is still idle when it fires.
//
// # Thread Safety
//
// Player and Manager are safe for concurrent use. Dispatch runs on a
// single goroutine per player; queue mutations take the player mutex.
package playback
