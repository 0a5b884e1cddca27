package simplepublish

import "fmt"

// mediaTransitions is the media processing state machine. A status absent
// from the map, or mapped to nothing, is terminal.
var mediaTransitions = map[MediaStatus][]MediaStatus{
	MediaStatusUploading:   {MediaStatusUploaded, MediaStatusFailed},
	MediaStatusUploaded:    {MediaStatusTranscoding, MediaStatusFailed},
	MediaStatusTranscoding: {MediaStatusReady, MediaStatusFailed},
	MediaStatusFailed:      {MediaStatusUploading},
	MediaStatusReady:       nil,
}

// IsValid reports whether s is a known media status.
func (s MediaStatus) IsValid() bool {
	_, ok := mediaTransitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s MediaStatus) IsTerminal() bool {
	return len(mediaTransitions[s]) == 0
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s MediaStatus) CanTransitionTo(next MediaStatus) bool {
	for _, allowed := range mediaTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsValid reports whether s is a known content status.
func (s ContentStatus) IsValid() bool {
	switch s {
	case ContentStatusDraft, ContentStatusPublished, ContentStatusArchived:
		return true
	}
	return false
}

// canTransitionMedia checks an explicit status change against the table.
func canTransitionMedia(op string, from, to MediaStatus) error {
	if !to.IsValid() {
		return invalid(op, "status", "oneof")
	}
	if from.CanTransitionTo(to) {
		return nil
	}
	return newError(op, ErrBusinessLogic,
		fmt.Sprintf("media cannot move from %s to %s", from, to),
		map[string]any{"from": string(from), "to": string(to)})
}

// canMarkReady allows a finished-pipeline report from any status on the
// forward path toward ready.
func canMarkReady(op string, from MediaStatus) error {
	switch from {
	case MediaStatusUploading, MediaStatusUploaded, MediaStatusTranscoding:
		return nil
	default:
		return newError(op, ErrBusinessLogic,
			fmt.Sprintf("media cannot move from %s to %s", from, MediaStatusReady),
			map[string]any{"from": string(from), "to": string(MediaStatusReady)})
	}
}

// canPublish gates publishing on linked media. media is nil when the linked
// item is missing or soft-deleted.
func canPublish(op string, content *Content, media *MediaItem) error {
	if !content.ContentType.RequiresMedia() {
		return nil
	}
	if content.MediaItemID == nil {
		return newError(op, ErrBusinessLogic,
			fmt.Sprintf("%s content requires a media item", content.ContentType),
			map[string]any{"contentId": content.ID.String()})
	}
	details := map[string]any{"mediaItemId": content.MediaItemID.String()}
	if media == nil {
		details["mediaStatus"] = "missing"
		return newError(op, ErrMediaNotReady, "linked media item is unavailable", details)
	}
	if media.Status != MediaStatusReady {
		details["mediaStatus"] = string(media.Status)
		return newError(op, ErrMediaNotReady,
			fmt.Sprintf("media item is %s", media.Status), details)
	}
	return nil
}

// checkMediaKind verifies that a media item can back content of type t.
func checkMediaKind(op string, t ContentType, media *MediaItem) error {
	if string(media.MediaType) == string(t) {
		return nil
	}
	return newError(op, ErrBusinessLogic,
		fmt.Sprintf("media item is %s but content is %s", media.MediaType, t),
		map[string]any{
			"reason":      "type_mismatch",
			"mediaItemId": media.ID.String(),
			"mediaType":   string(media.MediaType),
			"contentType": string(t),
		})
}
