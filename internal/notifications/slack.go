package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/sometime-app/review-collector/internal/models"
)

const slackAPIURL = "https://slack.com/api/chat.postMessage"

const blockDivider = "────────────────────"

// SlackNotifier posts review digests to a Slack channel through the bot API.
type SlackNotifier struct {
	token   string
	channel string
	client  *resty.Client
	apiURL  string
}

var _ Notifier = (*SlackNotifier)(nil)

type slackMessage struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{
		token:   token,
		channel: channel,
		client:  resty.New().SetTimeout(30 * time.Second),
		apiURL:  slackAPIURL,
	}
}

// SendDigest posts a single message summarizing the given reviews. An empty
// batch is a no-op. A rejected post (ok:false) is a hard failure: the
// records are already durable at this point, the operator just loses this
// batch's digest until the next successful run.
func (s *SlackNotifier) SendDigest(ctx context.Context, reviews []models.ReviewRecord) error {
	if len(reviews) == 0 {
		return nil
	}

	message := slackMessage{
		Channel: s.channel,
		Text:    s.buildDigest(reviews),
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+s.token).
		SetHeader("Content-Type", "application/json; charset=utf-8").
		SetBody(message).
		Post(s.apiURL)
	if err != nil {
		return fmt.Errorf("failed to post Slack message: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("slack API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var body slackResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return fmt.Errorf("failed to decode Slack response: %w", err)
	}
	if !body.OK {
		return fmt.Errorf("slack API rejected message: %s", body.Error)
	}

	logrus.Infof("Posted digest of %d new reviews to %s", len(reviews), s.channel)
	return nil
}

func (s *SlackNotifier) buildDigest(reviews []models.ReviewRecord) string {
	blocks := make([]string, 0, len(reviews)+1)
	blocks = append(blocks, fmt.Sprintf("📬 *%d new app review(s)*", len(reviews)))

	for _, review := range reviews {
		blocks = append(blocks, formatReview(review))
	}

	return strings.Join(blocks, "\n"+blockDivider+"\n")
}

func formatReview(review models.ReviewRecord) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s %s %s\n",
		ratingIndicator(review.Rating), storeGlyph(review.Store), stars(review.Rating)))

	if review.Title != "" {
		b.WriteString(fmt.Sprintf("*%s*\n", review.Title))
	}

	for _, line := range strings.Split(review.Body, "\n") {
		b.WriteString("> " + line + "\n")
	}

	meta := []string{review.Author}
	if review.AppVersion != "" {
		meta = append(meta, "v"+review.AppVersion)
	}
	if len(review.CreatedAt) >= 10 {
		meta = append(meta, review.CreatedAt[:10])
	}
	b.WriteString("— " + strings.Join(meta, " · "))

	return b.String()
}

// ratingIndicator maps a star rating to a traffic-light circle.
func ratingIndicator(rating int) string {
	switch {
	case rating >= 4:
		return "🟢"
	case rating == 3:
		return "🟡"
	default:
		return "🔴"
	}
}

func storeGlyph(store models.Store) string {
	if store == models.AppStore {
		return "🍎"
	}
	return "🤖"
}

func stars(rating int) string {
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}
