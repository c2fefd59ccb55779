package cbr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/tea-service/internal/config"
)

// ReferenceRate is a discount rate suggestion derived from the central bank key rate.
// All rates are percentages. Source is the endpoint the key rate came from; the
// default endpoint publishes the RUB key rate, so the suggestion is never applied
// to a scenario automatically.
type ReferenceRate struct {
	Source       string    `json:"source"`
	KeyRate      float64   `json:"key_rate"`
	RiskPremium  float64   `json:"risk_premium"`
	DiscountRate float64   `json:"discount_rate"`
	EffectiveOn  time.Time `json:"effective_on,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// CBRClient handles integration with Central Bank of Russia
type CBRClient struct {
	url         string
	riskPremium float64
	client      *http.Client
	log         *logrus.Logger
	now         func() time.Time
}

// NewCBRClient initializes a new CBR client
func NewCBRClient(cfg *config.Config, log *logrus.Logger) *CBRClient {
	return &CBRClient{
		url:         cfg.CBRURL,
		riskPremium: cfg.DiscountRiskPremium,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
		now: time.Now,
	}
}

// buildSOAPRequest creates a SOAP request for key rate
func (c *CBRClient) buildSOAPRequest() string {
	now := c.now()
	fromDate := now.AddDate(0, 0, -30).Format("2006-01-02")
	toDate := now.Format("2006-01-02")
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
		<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
			<soap12:Body>
				<KeyRate xmlns="http://web.cbr.ru/">
					<fromDate>%s</fromDate>
					<ToDate>%s</ToDate>
				</KeyRate>
			</soap12:Body>
		</soap12:Envelope>`, fromDate, toDate)
}

// sendRequest sends SOAP request to CBR
func (c *CBRClient) sendRequest(ctx context.Context, soapRequest string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(soapRequest))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://web.cbr.ru/KeyRate")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("CBR XML response: %s", string(body))
	return body, nil
}

// parseXMLResponse extracts the latest key rate and its effective date
func (c *CBRClient) parseXMLResponse(rawBody []byte) (float64, time.Time, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to parse XML: %w", err)
	}

	krElements := doc.FindElements("//diffgram/KeyRate/KR")
	if len(krElements) == 0 {
		return 0, time.Time{}, fmt.Errorf("no key rate data found in XML")
	}

	// the service lists the most recent entry first
	latestKR := krElements[0]
	rateElement := latestKR.FindElement("./Rate")
	if rateElement == nil {
		return 0, time.Time{}, fmt.Errorf("rate element not found in XML")
	}

	var rate float64
	if _, err := fmt.Sscanf(strings.TrimSpace(rateElement.Text()), "%f", &rate); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to parse rate: %w", err)
	}

	var effective time.Time
	if dt := latestKR.FindElement("./DT"); dt != nil {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(dt.Text())); err == nil {
			effective = t
		}
	}
	return rate, effective, nil
}

// GetKeyRate retrieves the current key rate from CBR and adds the risk premium
func (c *CBRClient) GetKeyRate(ctx context.Context) (*ReferenceRate, error) {
	body, err := c.sendRequest(ctx, c.buildSOAPRequest())
	if err != nil {
		return nil, err
	}

	keyRate, effective, err := c.parseXMLResponse(body)
	if err != nil {
		return nil, err
	}

	ref := &ReferenceRate{
		Source:       c.url,
		KeyRate:      keyRate,
		RiskPremium:  c.riskPremium,
		DiscountRate: keyRate + c.riskPremium,
		EffectiveOn:  effective,
		FetchedAt:    c.now(),
	}
	c.log.Infof("Retrieved key rate: %.2f%% (discount rate %.2f%% including %.2f%% risk premium)",
		ref.KeyRate, ref.DiscountRate, ref.RiskPremium)
	return ref, nil
}
