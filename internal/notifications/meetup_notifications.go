package notifications

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/9ssi7/exponent"

	"holdme/internal/store"
)

// dedupe drops repeated tokens; the same device can register under several
// sessions.
func dedupe(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func sendToUser(ctx context.Context, push PushSender, st store.Storage, userID string, title, body string, data map[string]string) error {
	tokensMap, err := st.PushTokens.GetTokensByUserIDs(ctx, []string{userID})
	if err != nil {
		return err
	}
	tokens := dedupe(tokensMap[userID])
	if len(tokens) == 0 {
		return errors.New("no push tokens")
	}

	msgs := make([]*exponent.Message, 0, len(tokens))
	for _, t := range tokens {
		token := exponent.Token(t)
		msgs = append(msgs, &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: title,
			Body:  body,
			Data:  data,
		})
	}

	_, err = push.Publish(ctx, msgs)
	return err
}

// SendJoinRequestToHost notifies a meetup host that someone asked to join.
func SendJoinRequestToHost(ctx context.Context, push PushSender, st store.Storage, hostID string, postID int64, requesterNickname string) error {
	return sendToUser(ctx, push, st, hostID,
		"New meetup join request",
		fmt.Sprintf("%s wants to join your meetup", requesterNickname),
		map[string]string{
			"type":    "meetup_join_request",
			"post_id": strconv.FormatInt(postID, 10),
			"screen":  fmt.Sprintf("posts/%d", postID),
		},
	)
}

// SendJoinWithdrawnToHost notifies the host that a pending request was withdrawn.
func SendJoinWithdrawnToHost(ctx context.Context, push PushSender, st store.Storage, hostID string, postID int64, requesterNickname string) error {
	return sendToUser(ctx, push, st, hostID,
		"Join request withdrawn",
		fmt.Sprintf("%s withdrew their join request", requesterNickname),
		map[string]string{
			"type":    "meetup_join_withdrawn",
			"post_id": strconv.FormatInt(postID, 10),
			"screen":  fmt.Sprintf("posts/%d", postID),
		},
	)
}

// SendJoinApprovedToUser notifies a requester that the host approved them.
func SendJoinApprovedToUser(ctx context.Context, push PushSender, st store.Storage, userID string, postID int64) error {
	return sendToUser(ctx, push, st, userID,
		"Join request approved",
		"You're in! The host approved your meetup request",
		map[string]string{
			"type":    "meetup_join_approved",
			"post_id": strconv.FormatInt(postID, 10),
			"screen":  fmt.Sprintf("posts/%d", postID),
		},
	)
}

// SendJoinRejectedToUser notifies a requester that the host turned them down.
func SendJoinRejectedToUser(ctx context.Context, push PushSender, st store.Storage, userID string, postID int64) error {
	return sendToUser(ctx, push, st, userID,
		"Join request declined",
		"Your request to join the meetup was not accepted",
		map[string]string{
			"type":    "meetup_join_rejected",
			"post_id": strconv.FormatInt(postID, 10),
			"screen":  fmt.Sprintf("posts/%d", postID),
		},
	)
}

// BuildMeetupCanceledMessages collects the cancellation fan-out for everyone
// approved or still pending. Callers build the messages BEFORE deleting the
// post; the participant rows cascade away with it.
func BuildMeetupCanceledMessages(ctx context.Context, st store.Storage, postID int64) ([]*exponent.Message, error) {
	participants, err := st.Participants.GetByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting meetup participants: %w", err)
	}

	var userIDs []string
	for _, p := range participants {
		if p.Status == store.ParticipantApproved || p.Status == store.ParticipantPending {
			userIDs = append(userIDs, p.UserID)
		}
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	tokensMap, err := st.PushTokens.GetTokensByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("error getting participant tokens: %w", err)
	}

	allTokens := make([]string, 0)
	for _, tokens := range tokensMap {
		allTokens = append(allTokens, tokens...)
	}
	compactTokens := dedupe(allTokens)

	msgs := make([]*exponent.Message, 0, len(compactTokens))
	for _, t := range compactTokens {
		token := exponent.Token(t)
		msgs = append(msgs, &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: "Meetup canceled",
			Body:  "A meetup you joined has been canceled",
			Data: map[string]string{
				"type":    "meetup_canceled",
				"post_id": strconv.FormatInt(postID, 10),
				"screen":  "posts",
			},
		})
	}
	return msgs, nil
}
