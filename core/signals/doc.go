// Package signals defines the typed raw-signal contract for the input path.
//
// Signal kinds split into two groups:
//
//   - content signals (audio_frame, speech_started, speech_ended): carry or
//     frame conversational content and are subject to the input gate.
//   - lifecycle signals (stream_started, stream_stopped, stream_cancelled):
//     control the stream itself and always pass through.
package signals
