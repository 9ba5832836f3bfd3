// Package orchestrator drives one conversation turn from user message to
// final answer.
//
// # Turn Loop
//
// A turn moves through AWAITING_USER, REQUESTING_COMPLETION, AWAITING_TOOLS,
// and ends in DONE or FAILED. Each round sends the full stored history (plus
// the function schemas when tools are on) to the completion client. Final
// content ends the turn; requested invocations are dispatched concurrently,
// joined, appended to the history as one batch (the assistant message
// followed by one tool message per invocation), and the loop continues. The
// round bound (default 5) stops runaway tool chains: hitting it returns
// whatever partial answer accumulated plus a degradation notice, and the
// conversation stays usable.
//
// # Serialization
//
// Each conversation id has at most one active turn; later submissions for
// the same id queue behind it. Distinct ids proceed in parallel. The user
// message is recorded before anything else, so a failed turn still leaves
// the question in the history.
//
// # Degradation
//
// An unavailable tool catalog disables tools for the turn and attaches a
// notice instead of failing. Failures local to one invocation come back as
// tool-role error content the model can react to; only completion-service
// failures and cancellation fail the turn. A canceled turn appends nothing
// from its in-flight round.
package orchestrator
