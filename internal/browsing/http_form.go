package browsing

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/courtfetch/internal/webclient"
)

var errNoForm = errors.New("control is not inside a form")

// submission builds the request a browser would send when el is clicked: a link
// is followed, a submit control posts its form.
func (h *httpHandle) submission(el *goquery.Selection) (*webclient.Request, error) {
	if goquery.NodeName(el) == "a" {
		href, _ := el.Attr("href")
		target, err := h.page.Parse(strings.TrimSpace(href))
		if err != nil {
			return nil, fmt.Errorf("resolve link %q: %w", href, err)
		}
		return &webclient.Request{Method: http.MethodGet, URL: target.String()}, nil
	}

	form := el.Closest("form")
	if form.Length() == 0 {
		return nil, fmt.Errorf("%w: %w", errNoForm, ErrElementNotFound)
	}

	values := h.formValues(form)
	if name, ok := el.Attr("name"); ok && name != "" && isSubmitControl(el) {
		values.Add(name, el.AttrOr("value", ""))
	}

	action, err := h.page.Parse(strings.TrimSpace(form.AttrOr("action", "")))
	if err != nil {
		return nil, fmt.Errorf("resolve form action: %w", err)
	}
	action.Fragment = ""

	method := strings.ToUpper(strings.TrimSpace(form.AttrOr("method", http.MethodGet)))
	if method != http.MethodPost {
		action.RawQuery = values.Encode()
		return &webclient.Request{Method: http.MethodGet, URL: action.String()}, nil
	}
	return &webclient.Request{
		Method:  http.MethodPost,
		URL:     action.String(),
		Headers: http.Header{"Content-Type": {"application/x-www-form-urlencoded"}, "Referer": {h.page.String()}},
		Body:    []byte(values.Encode()),
	}, nil
}

func isSubmitControl(el *goquery.Selection) bool {
	switch goquery.NodeName(el) {
	case "button":
		t := strings.ToLower(el.AttrOr("type", "submit"))
		return t == "submit"
	case "input":
		t := strings.ToLower(el.AttrOr("type", ""))
		return t == "submit" || t == "image"
	}
	return false
}

// formValues collects the successful controls of form in document order, with
// recorded Fill and Select values taking the place of the markup defaults.
func (h *httpHandle) formValues(form *goquery.Selection) url.Values {
	values := url.Values{}
	form.Find("input, select, textarea").Each(func(_ int, c *goquery.Selection) {
		name, ok := c.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := c.Attr("disabled"); disabled {
			return
		}
		override, hasOverride := h.overrides[c.Get(0)]

		switch goquery.NodeName(c) {
		case "textarea":
			if hasOverride {
				values.Add(name, override)
				return
			}
			values.Add(name, c.Text())
		case "select":
			if hasOverride {
				values.Add(name, override)
				return
			}
			if v, ok := selectedOption(c); ok {
				values.Add(name, v)
			}
		default:
			switch strings.ToLower(c.AttrOr("type", "text")) {
			case "submit", "button", "image", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := c.Attr("checked"); checked {
					values.Add(name, c.AttrOr("value", "on"))
				}
				return
			}
			if hasOverride {
				values.Add(name, override)
				return
			}
			values.Add(name, c.AttrOr("value", ""))
		}
	})
	return values
}

// selectedOption returns the option marked selected, else the first one.
func selectedOption(sel *goquery.Selection) (string, bool) {
	opts := sel.Find("option")
	if opts.Length() == 0 {
		return "", false
	}
	picked := opts.Filter("[selected]").First()
	if picked.Length() == 0 {
		picked = opts.First()
	}
	return optionValue(picked), true
}

// optionValue is the value attribute, or the option text when it has none.
func optionValue(opt *goquery.Selection) string {
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(opt.Text())
}
