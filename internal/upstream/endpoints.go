package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
)

// ListCourts fetches one page of the court catalog. pageURL continues from
// a previous page's NextPage; empty starts at the beginning.
func (c *Client) ListCourts(ctx context.Context, pageURL string) (*CourtPage, error) {
	requestURL := pageURL
	if requestURL == "" {
		requestURL = c.listURL("courts", nil)
	}
	var env listEnvelope[CourtRecord]
	if err := c.getJSON(ctx, "courts", requestURL, &env); err != nil {
		return nil, err
	}
	return &CourtPage{Total: env.Count, NextPage: pageCursor(env.Next), Courts: env.Results}, nil
}

// GetCourt fetches one court by its catalog identifier.
func (c *Client) GetCourt(ctx context.Context, externalID string) (*CourtRecord, error) {
	if externalID == "" {
		return nil, errors.New("court external id is required")
	}
	var record CourtRecord
	if err := c.getJSON(ctx, "courts", c.recordURL("courts", externalID), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListJudges fetches one page of the judge catalog, position history
// included.
func (c *Client) ListJudges(ctx context.Context, pageURL string) (*JudgePage, error) {
	requestURL := pageURL
	if requestURL == "" {
		requestURL = c.listURL("judges", nil)
	}
	var env listEnvelope[JudgeRecord]
	if err := c.getJSON(ctx, "judges", requestURL, &env); err != nil {
		return nil, err
	}
	return &JudgePage{Total: env.Count, NextPage: pageCursor(env.Next), Judges: env.Results}, nil
}

// GetJudge fetches one judge by its catalog identifier.
func (c *Client) GetJudge(ctx context.Context, externalID string) (*JudgeRecord, error) {
	if externalID == "" {
		return nil, errors.New("judge external id is required")
	}
	var record JudgeRecord
	if err := c.getJSON(ctx, "judges", c.recordURL("judges", externalID), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListJudgeOpinions fetches one page of opinions authored by a judge.
func (c *Client) ListJudgeOpinions(ctx context.Context, judgeExternalID, pageURL string) (*OpinionPage, error) {
	if judgeExternalID == "" {
		return nil, errors.New("judge external id is required")
	}
	requestURL := pageURL
	if requestURL == "" {
		requestURL = c.listURL("opinions", url.Values{"author": {judgeExternalID}})
	}
	var env listEnvelope[OpinionRecord]
	if err := c.getJSON(ctx, "opinions", requestURL, &env); err != nil {
		return nil, err
	}
	return &OpinionPage{Total: env.Count, NextPage: pageCursor(env.Next), Opinions: env.Results}, nil
}

// GetOpinion fetches one opinion and keeps the raw body alongside the
// decoded record for outcome probing.
func (c *Client) GetOpinion(ctx context.Context, externalID string) (*OpinionRecord, error) {
	if externalID == "" {
		return nil, errors.New("opinion external id is required")
	}
	requestURL := c.recordURL("opinions", externalID)
	body, err := c.get(ctx, "opinions", requestURL)
	if err != nil {
		return nil, err
	}
	var record OpinionRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, &PayloadError{URL: requestURL, Cause: err}
	}
	record.Raw = body
	return &record, nil
}

// ListJudgeDockets fetches one page of docket headers for a judge.
func (c *Client) ListJudgeDockets(ctx context.Context, judgeExternalID, pageURL string) (*DocketPage, error) {
	if judgeExternalID == "" {
		return nil, errors.New("judge external id is required")
	}
	requestURL := pageURL
	if requestURL == "" {
		requestURL = c.listURL("dockets", url.Values{"judge": {judgeExternalID}})
	}
	var env listEnvelope[DocketRecord]
	if err := c.getJSON(ctx, "dockets", requestURL, &env); err != nil {
		return nil, err
	}
	return &DocketPage{Total: env.Count, NextPage: pageCursor(env.Next), Dockets: env.Results}, nil
}

func (c *Client) listURL(resource string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("page_size", strconv.Itoa(c.pageSize))
	return c.baseURL + "/" + resource + "/?" + params.Encode()
}

func (c *Client) recordURL(resource, id string) string {
	return c.baseURL + "/" + resource + "/" + url.PathEscape(id) + "/"
}
