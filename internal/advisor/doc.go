// Package advisor wraps the hosted multimodal model Reclaim depends on. The
// Engine classifies photos into raw asset mappings, produces DIY diagnoses and
// runs the troubleshooting chat (with an optional bounded tool loop). Provider
// adapters live under internal/llm.
package advisor
