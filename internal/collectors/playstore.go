package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/sometime-app/review-collector/internal/models"
)

const (
	playBaseURL  = "https://androidpublisher.googleapis.com"
	playScope    = "https://www.googleapis.com/auth/androidpublisher"
	playPageSize = 100
)

// PlayStoreCollector fetches reviews from the Google Play Developer API
// using a read-only service account.
//
// Unlike the App Store collector, this one is strict: a review item without
// a normalizable user comment fails the whole Collect call rather than being
// silently skipped. The orchestrator isolates that failure to this store.
type PlayStoreCollector struct {
	packageName        string
	serviceAccountJSON string
	client             *resty.Client
	baseURL            string
	tokenSource        func(ctx context.Context) (*oauth2.Token, error)
}

type playReviewsResponse struct {
	Reviews []struct {
		ReviewID   string `json:"reviewId"`
		AuthorName string `json:"authorName"`
		Comments   []struct {
			UserComment *struct {
				Text         string `json:"text"`
				LastModified struct {
					Seconds string `json:"seconds"`
				} `json:"lastModified"`
				StarRating       int    `json:"starRating"`
				ReviewerLanguage string `json:"reviewerLanguage"`
				AppVersionName   string `json:"appVersionName"`
			} `json:"userComment"`
		} `json:"comments"`
	} `json:"reviews"`
	TokenPagination struct {
		NextPageToken string `json:"nextPageToken"`
	} `json:"tokenPagination"`
}

// NewPlayStoreCollector creates a Play Store collector for the given
// application package. serviceAccountJSON is the key file of a service
// account granted view-only access in the Play Console.
func NewPlayStoreCollector(packageName, serviceAccountJSON string) *PlayStoreCollector {
	c := &PlayStoreCollector{
		packageName:        packageName,
		serviceAccountJSON: serviceAccountJSON,
		client:             resty.New().SetTimeout(30 * time.Second),
		baseURL:            playBaseURL,
	}
	c.tokenSource = c.serviceAccountToken
	return c
}

func (c *PlayStoreCollector) Name() string {
	return "play_store"
}

func (c *PlayStoreCollector) Enabled() bool {
	return c.packageName != "" && c.serviceAccountJSON != ""
}

// Collect pages through the reviews endpoint using the vendor's opaque page
// token, stopping at maxPages, an empty page, or a missing next token.
func (c *PlayStoreCollector) Collect(ctx context.Context, maxPages int) ([]models.Review, error) {
	if !c.Enabled() {
		logrus.Debug("Play Store collector disabled - missing credentials")
		return nil, nil
	}

	token, err := c.tokenSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("play store authentication failed: %w", err)
	}

	var reviews []models.Review
	pageToken := ""

	for page := 0; page < maxPages; page++ {
		endpoint := fmt.Sprintf("%s/androidpublisher/v3/applications/%s/reviews?maxResults=%d",
			c.baseURL, url.PathEscape(c.packageName), playPageSize)
		if pageToken != "" {
			endpoint += "&token=" + url.QueryEscape(pageToken)
		}

		resp, err := c.client.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+token.AccessToken).
			Get(endpoint)
		if err != nil {
			return nil, fmt.Errorf("play store request failed on page %d: %w", page+1, err)
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("play store API returned status %d on page %d: %s",
				resp.StatusCode(), page+1, string(resp.Body()))
		}

		var body playReviewsResponse
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return nil, fmt.Errorf("failed to decode play store response on page %d: %w", page+1, err)
		}

		if len(body.Reviews) == 0 {
			break
		}

		for _, item := range body.Reviews {
			if len(item.Comments) == 0 || item.Comments[0].UserComment == nil {
				return nil, fmt.Errorf("play store review %s has no user comment", item.ReviewID)
			}
			comment := item.Comments[0].UserComment

			review := models.Review{
				ReviewID:   item.ReviewID,
				Store:      models.PlayStore,
				Rating:     comment.StarRating,
				Body:       comment.Text,
				Author:     item.AuthorName,
				AppVersion: comment.AppVersionName,
				Language:   comment.ReviewerLanguage,
				CreatedAt:  parseEpochSeconds(comment.LastModified.Seconds),
			}
			reviews = append(reviews, review)
		}

		pageToken = body.TokenPagination.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return reviews, nil
}

// serviceAccountToken runs the standard OAuth2 service-account flow scoped
// to the androidpublisher read permission.
func (c *PlayStoreCollector) serviceAccountToken(ctx context.Context) (*oauth2.Token, error) {
	conf, err := google.JWTConfigFromJSON([]byte(c.serviceAccountJSON), playScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account JSON: %w", err)
	}
	return conf.TokenSource(ctx).Token()
}

// parseEpochSeconds converts the vendor's seconds-as-string epoch timestamp.
func parseEpochSeconds(seconds string) time.Time {
	n, err := strconv.ParseInt(seconds, 10, 64)
	if err != nil {
		logrus.Warnf("Unparseable Play Store timestamp %q", seconds)
		return time.Time{}
	}
	return time.Unix(n, 0).UTC()
}
