package google

import (
	"context"
	"strconv"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/fpylas/mailsync/interfaces"
	er "github.com/fpylas/mailsync/internal/errors"
	"github.com/fpylas/mailsync/internal/tracing"
)

// GmailService implements the provider capability surface against the
// Gmail REST API.
type GmailService struct {
	oauth       *oauth2.Config
	pubSubTopic string
}

func NewGmailService(cfg *OAuthConfig) interfaces.GmailProvider {
	return &GmailService{
		oauth:       oauthConfig(cfg),
		pubSubTopic: cfg.PubSubTopic,
	}
}

func (s *GmailService) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

func (s *GmailService) ExchangeAuthCode(ctx context.Context, code string) (*oauth2.Token, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailService.ExchangeAuthCode")
	defer span.Finish()
	tracing.TagComponentService(span)

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to exchange auth code")
	}

	return token, nil
}

// usersService builds an authenticated Gmail client. The token source
// refreshes the access token transparently when expired.
func (s *GmailService) usersService(ctx context.Context, token *oauth2.Token) (*gmail.UsersService, error) {
	httpClient := oauth2.NewClient(ctx, s.oauth.TokenSource(ctx, token))

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gmail service")
	}

	return svc.Users, nil
}

func (s *GmailService) Profile(ctx context.Context, token *oauth2.Token) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailService.Profile")
	defer span.Finish()
	tracing.TagComponentService(span)

	users, err := s.usersService(ctx, token)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	profile, err := users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(err, "failed to get profile")
	}

	return profile.EmailAddress, nil
}

func (s *GmailService) Watch(ctx context.Context, token *oauth2.Token, labels []string) (*interfaces.WatchResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailService.Watch")
	defer span.Finish()
	tracing.TagComponentService(span)

	users, err := s.usersService(ctx, token)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	resp, err := users.Watch("me", &gmail.WatchRequest{
		LabelIds:  labels,
		TopicName: s.pubSubTopic,
	}).Context(ctx).Do()
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to set up mailbox watch")
	}

	return &interfaces.WatchResult{
		HistoryID:  strconv.FormatUint(resp.HistoryId, 10),
		Expiration: time.Unix(0, resp.Expiration*int64(time.Millisecond)),
	}, nil
}

func (s *GmailService) HistoryDelta(ctx context.Context, token *oauth2.Token, startHistoryID string) ([]*gmail.History, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailService.HistoryDelta")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag("start_history_id", startHistoryID)

	users, err := s.usersService(ctx, token)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	start, err := strconv.ParseUint(startHistoryID, 10, 64)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "invalid watermark %q", startHistoryID)
	}

	var records []*gmail.History
	pageToken := ""
	for {
		call := users.History.List("me").StartHistoryId(start).Context(ctx)
		if pageToken != "" {
			call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			// A 404 means the watermark is too old for the provider's
			// history retention; surface it as a missing delta.
			if apiErr, ok := err.(*googleapi.Error); ok && apiErr.Code == 404 {
				tracing.TraceErr(span, err)
				return nil, er.ErrNoHistory
			}
			tracing.TraceErr(span, err)
			return nil, errors.Wrap(err, "failed to list history")
		}

		records = append(records, resp.History...)
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	span.SetTag("records", len(records))
	return records, nil
}

func (s *GmailService) FullMessage(ctx context.Context, token *oauth2.Token, messageID string) (*gmail.Message, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailService.FullMessage")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag("message_id", messageID)

	users, err := s.usersService(ctx, token)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	msg, err := users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "failed to get message %s", messageID)
	}

	return msg, nil
}

func (s *GmailService) AttachmentData(ctx context.Context, token *oauth2.Token, messageID, attachmentID string) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailService.AttachmentData")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag("message_id", messageID)

	users, err := s.usersService(ctx, token)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	attachment, err := users.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrapf(err, "failed to get attachment %s", attachmentID)
	}

	return attachment.Data, nil
}
