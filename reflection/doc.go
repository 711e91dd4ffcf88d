// Package reflection implements the self-critique / auto-improvement loop
// that turns a finished agent answer into a quality-checked output.
//
// A Controller issues critique requests to a model backend, parses the
// structured reply (score, strengths, weaknesses, improvements, optional
// revision) and decides whether to adopt the revision and critique again.
// The loop is bounded by an explicit iteration budget; it bounds the number
// of attempts, it does not guarantee the score improves. Callers that need a
// safety floor should compare the returned score against the pre-reflection
// score and keep the higher-scoring output.
package reflection
