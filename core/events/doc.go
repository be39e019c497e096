// Package events defines the typed event contract published by the dialogue
// controller to its observers.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - session.*
//   - user_input.*
//   - assistant.*
//   - conversation.*
//   - recognition.*
//
// Semantics used across the package:
//
//   - Partial: mutable point-in-time snapshot that can change over time.
//   - Final: terminal immutable text for the current utterance.
//   - Started / Ended: lifecycle boundaries.
//
// session events
//
//   - SessionStateChanged (session.state_changed): the controller entered a
//     new state. Message is set for the error state.
//
// user_input events
//
//   - UserTranscriptPartial (user_input.transcript_partial): live caption of
//     the utterance in progress, empty when cleared.
//   - UserTranscriptFinal (user_input.transcript_final): finalized transcript
//     segment buffered for the next response.
//
// assistant events
//
//   - AssistantGreeting (assistant.greeting): opening line of the session, not
//     part of the conversation log.
//   - AssistantSpeechStarted (assistant.speech_started): playback began.
//   - AssistantSpeechEnded (assistant.speech_ended): playback ended, Failed is
//     set when the synthesis engine faulted.
//
// conversation events
//
//   - TurnAppended (conversation.turn_appended): a turn was appended to the log.
//   - TurnEnded (conversation.turn_ended): an open turn was closed.
//
// recognition events
//
//   - RecognitionFault (recognition.fault): the speech-to-text engine reported
//     a fault. Recoverable faults are retried by the controller.
package events
