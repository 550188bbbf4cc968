package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/sometime-app/review-collector/internal/models"
)

const (
	appStoreBaseURL  = "https://api.appstoreconnect.apple.com"
	appStoreAudience = "appstoreconnect-v1"
	appStoreTokenTTL = 20 * time.Minute
	appStorePageSize = 200
)

// AppStoreCollector fetches customer reviews from the App Store Connect API.
//
// Failure policy is tolerant: a failed page request ends pagination and the
// reviews accumulated so far are returned, so one flaky page never discards
// a whole run's worth of data.
type AppStoreCollector struct {
	appID      string
	keyID      string
	issuerID   string
	privateKey string
	client     *resty.Client
	baseURL    string
}

type appStoreReviewsResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Rating           int    `json:"rating"`
			Title            string `json:"title"`
			Body             string `json:"body"`
			ReviewerNickname string `json:"reviewerNickname"`
			CreatedDate      string `json:"createdDate"`
			Territory        string `json:"territory"`
		} `json:"attributes"`
	} `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// NewAppStoreCollector creates an App Store collector for the given app.
// privateKey is the PEM-encoded .p8 key issued with the API key.
func NewAppStoreCollector(appID, keyID, issuerID, privateKey string) *AppStoreCollector {
	return &AppStoreCollector{
		appID:      appID,
		keyID:      keyID,
		issuerID:   issuerID,
		privateKey: privateKey,
		client:     resty.New().SetTimeout(30 * time.Second),
		baseURL:    appStoreBaseURL,
	}
}

func (c *AppStoreCollector) Name() string {
	return "app_store"
}

func (c *AppStoreCollector) Enabled() bool {
	return c.appID != "" && c.keyID != "" && c.issuerID != "" && c.privateKey != ""
}

// Collect pages through the reviews endpoint newest-first, following the
// opaque next link until maxPages is reached or the vendor stops supplying
// one.
func (c *AppStoreCollector) Collect(ctx context.Context, maxPages int) ([]models.Review, error) {
	if !c.Enabled() {
		logrus.Debug("App Store collector disabled - missing credentials")
		return nil, nil
	}

	token, err := c.buildToken(time.Now())
	if err != nil {
		return nil, fmt.Errorf("app store token generation failed: %w", err)
	}

	var reviews []models.Review
	pageURL := fmt.Sprintf("%s/v1/apps/%s/customerReviews?sort=-createdDate&limit=%d",
		c.baseURL, c.appID, appStorePageSize)

	for page := 0; page < maxPages && pageURL != ""; page++ {
		resp, err := c.client.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+token).
			Get(pageURL)
		if err != nil {
			logrus.Errorf("App Store request failed on page %d: %v", page+1, err)
			break
		}
		if resp.StatusCode() != 200 {
			logrus.Errorf("App Store API returned status %d on page %d: %s",
				resp.StatusCode(), page+1, string(resp.Body()))
			break
		}

		var body appStoreReviewsResponse
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			logrus.Errorf("Failed to decode App Store response on page %d: %v", page+1, err)
			break
		}

		for _, item := range body.Data {
			reviews = append(reviews, c.normalize(item.ID, item.Attributes.Rating,
				item.Attributes.Title, item.Attributes.Body,
				item.Attributes.ReviewerNickname, item.Attributes.Territory,
				item.Attributes.CreatedDate))
		}

		pageURL = body.Links.Next
	}

	return reviews, nil
}

func (c *AppStoreCollector) normalize(id string, rating int, title, body, author, territory, createdDate string) models.Review {
	createdAt, err := time.Parse(time.RFC3339, createdDate)
	if err != nil {
		logrus.Warnf("Unparseable App Store review date %q for review %s", createdDate, id)
	}
	return models.Review{
		ReviewID:  id,
		Store:     models.AppStore,
		Rating:    rating,
		Title:     title,
		Body:      body,
		Author:    author,
		Language:  territory,
		CreatedAt: createdAt,
	}
}

// buildToken mints a short-lived ES256 bearer token for App Store Connect.
// Tokens are scoped to a single Collect call and never reused.
func (c *AppStoreCollector) buildToken(now time.Time) (string, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(c.privateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse App Store private key: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": c.issuerID,
		"iat": now.Unix(),
		"exp": now.Add(appStoreTokenTTL).Unix(),
		"aud": appStoreAudience,
	})
	token.Header["kid"] = c.keyID

	return token.SignedString(key)
}
