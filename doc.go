// Package coinfolio provides the types and functions to track a personal
// cryptocurrency portfolio. It is designed to be local-first: the whole state
// fits in three keys of a key-value store, and can be exported or backed up
// into human readable JSON files.
//
// The core functionalities include:
//   - Portfolio Management: holdings are accumulated per coin at a weighted
//     average cost basis.
//   - Price Alerts: passive records of target prices for a coin.
//   - Market Data Integration: a catalog of the top coins by market cap, and
//     periodic snapshots of live prices with their 24h change.
//   - Valuation: a stateless engine that computes current value, cost basis
//     and profit/loss per holding, and portfolio wide aggregates.
//   - Data Persistence: write-through mirroring of every mutation into a
//     [store.Store], plus export, backup and restore files.
//
// This package serves as the foundational logic for the `cpt` command-line
// tool and its embedded web page.
package coinfolio
