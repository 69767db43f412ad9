// Package mcp implements the Model Context Protocol (MCP) server for the
// evidence engine.
//
// The MCP server exposes two tools to AI assistants:
//   - fetch_evidence: Run a search plan and return ranked, citation-ready evidence
//   - engine_status: Report configuration, similarity cache size and counters
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries protocol messages only; all logging goes to stderr.
//
// # Tool: fetch_evidence
//
//	Request:
//	{
//	  "name": "fetch_evidence",
//	  "arguments": {
//	    "plan_id": "b5d1c0c2",
//	    "query": "How do I fix a leaky faucet?",
//	    "search_terms": ["leaky faucet", "dripping tap"],
//	    "communities": ["r/DIY", "plumbing"],
//	    "notes": "home repair question"
//	  }
//	}
//
//	Response:
//	{
//	  "plan_id": "b5d1c0c2",
//	  "source": "reddit",
//	  "items": [
//	    {
//	      "id": "1abcde",
//	      "title": "How do I fix a leaky faucet?",
//	      "relevance_score": 8,
//	      "matched_signals": ["fix", "how do i"],
//	      "url": "https://www.reddit.com/r/diy/comments/1abcde/...",
//	      "replies": [...]
//	    }
//	  ],
//	  "stats": {"strategy": "keyword", "degraded": false, ...}
//	}
//
// A plan_id is generated when omitted. Transport and scoring failures never
// fail the call; they show up as fewer items and in stats.
//
// # Tool: engine_status
//
//	Response:
//	{
//	  "build_mode": "purego",
//	  "config": {"semantic_ranking": true, "workers": 3, ...},
//	  "cache": {"enabled": true, "persistent": true, "entries": 1204},
//	  "counters": {"evidence_runs_total": 12, ...}
//	}
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params (arguments are not a search plan)
//   - -32603: Internal error
//   - -32001: Search plan failed validation
package mcp
