// Package events defines the typed session event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - session.*
//   - user_input.*
//   - transcript.*
//   - turn_state.*
//   - tool_call.*
//   - assistant_playback.*
//
// session events
//
//   - SessionStatusChanged (session.status_changed): the session moved to a
//     new status; carries the error that caused an error transition.
//
// user_input events
//
//   - UserSpeechStarted (user_input.speech_started): local voice activity
//     began. Advisory only, audio is streamed regardless.
//   - UserSpeechEnded (user_input.speech_ended): local voice activity ended
//     after the silence timeout.
//
// transcript events
//
//   - TranscriptFragment (transcript.fragment): append-only text piece for a
//     role, in arrival order. Fragments are not turns.
//
// turn_state events
//
//   - TurnCompleted (turn_state.completed): the remote side signalled turn
//     completion; carries the finalized turns, user before assistant.
//
// tool_call events
//
//   - ToolCallStarted (tool_call.started): tool execution started.
//   - ToolCallCompleted (tool_call.completed): tool execution completed.
//   - ToolCallFailed (tool_call.failed): tool execution failed, including
//     unknown tools. A result is still sent back.
//   - ToolCallCancelled (tool_call.cancelled): a pending call was cancelled
//     by the remote side or by teardown.
//
// assistant_playback events
//
//   - AssistantPlaybackStarted (assistant_playback.started): model speech
//     started playing.
//   - AssistantPlaybackEnded (assistant_playback.ended): the last scheduled
//     frame finished or playback was stopped.
//   - AssistantPlaybackDecodeFailed (assistant_playback.decode_failed): an
//     inbound chunk was dropped because it could not be decoded.
//   - AssistantPlaybackInterrupted (assistant_playback.interrupted): the
//     remote side detected barge-in and playback was flushed.
package events
