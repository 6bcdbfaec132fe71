// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

// Package pep503 implements the PEP 503 Simple Repository API, as far as the
// specifier resolver needs it: canonical name normalization and project file
// listings.
//
// https://www.python.org/dev/peps/pep-0503/
package pep503

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

const PyPIBaseURL = "https://pypi.org/simple/"

var reNameSeparators = regexp.MustCompile(`[-_.]+`)

// NormalizeName returns the canonical lookup form of a project name: runs of
// "-", "_", and "." collapse to a single "-", and the result is lowercased.
func NormalizeName(name string) string {
	return strings.ToLower(reNameSeparators.ReplaceAllLiteralString(name, "-"))
}

// Client talks to one package index implementing the Simple Repository API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

func (c *Client) fillDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = PyPIBaseURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.UserAgent == "" {
		c.UserAgent = "github.com/reqsrc/reqsrc/pkg/pep503"
	}
}

type HTTPError struct {
	Status     string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %s", e.Status)
}

func (c Client) get(ctx context.Context, requestURL string) (_ *url.URL, _ []byte, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("GET %q => %w", requestURL, err)
		}
	}()
	c.fillDefaults()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		return nil, nil, err
	}
	if err := resp.Body.Close(); err != nil {
		return nil, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, &HTTPError{Status: resp.Status, StatusCode: resp.StatusCode}
	}

	return resp.Request.URL, content, nil
}

// Link is an anchor from a project page: the anchor text is the distribution
// filename, the href points at the file, and any data-* attributes are
// carried along verbatim.
type Link struct {
	Filename  string
	HRef      string
	DataAttrs map[string]string
}

func visitHTML(node *html.Node, visit func(*html.Node) error) error {
	if err := visit(node); err != nil {
		return err
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if err := visitHTML(child, visit); err != nil {
			return err
		}
	}
	return nil
}

func nodeText(node *html.Node) string {
	var text strings.Builder
	_ = visitHTML(node, func(child *html.Node) error {
		if child.Type == html.TextNode {
			text.WriteString(child.Data)
		}
		return nil
	})
	return text.String()
}

func parseLinks(location *url.URL, content []byte) ([]Link, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	var links []Link
	if err := visitHTML(doc, func(node *html.Node) error {
		if node.Type != html.ElementNode || node.Data != "a" {
			return nil
		}
		link := Link{
			Filename:  strings.TrimSpace(nodeText(node)),
			DataAttrs: make(map[string]string),
		}
		for _, attr := range node.Attr {
			switch {
			case attr.Namespace == "" && attr.Key == "href":
				href, err := location.Parse(attr.Val)
				if err != nil {
					return err
				}
				link.HRef = href.String()
			case attr.Namespace == "" && strings.HasPrefix(attr.Key, "data-"):
				link.DataAttrs[attr.Key] = attr.Val
			}
		}
		links = append(links, link)
		return nil
	}); err != nil {
		return nil, err
	}
	return links, nil
}

// ListProjectFiles fetches the project page for the named project and
// returns one Link per distribution file.  A project unknown to the index
// surfaces as an *HTTPError with StatusCode 404.
func (c Client) ListProjectFiles(ctx context.Context, projectName string) ([]Link, error) {
	// "the only valid characters in a name are the ASCII alphabet, ASCII
	// numbers, `.`, `-`, and `_`."
	for _, char := range projectName {
		if !(('a' <= char && char <= 'z') ||
			('A' <= char && char <= 'Z') ||
			('0' <= char && char <= '9') ||
			char == '.' ||
			char == '-' ||
			char == '_') {
			return nil, fmt.Errorf("illegal character in project name: %q: %s",
				projectName, strconv.QuoteRuneToASCII(char))
		}
	}

	c.fillDefaults()
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, NormalizeName(projectName)) + "/"
	location, content, err := c.get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	return parseLinks(location, content)
}
