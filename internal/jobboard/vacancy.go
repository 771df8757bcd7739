package jobboard

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type Vacancy struct {
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	AlternateURL string `mapstructure:"alternate_url"`
	Description  string `mapstructure:"description"`
	Employer     struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"employer"`
	Experience struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"experience"`
	KeySkills []struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"key_skills"`
}

// GetVacancy loads a single vacancy by id or by its hh.ru page URL.
func (c *Client) GetVacancy(ref string) (*Vacancy, error) {
	id, err := ParseVacancyID(ref)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := c.getJSON(fmt.Sprintf("%s/vacancies/%s", c.APIURL, url.PathEscape(id)), &raw); err != nil {
		return nil, fmt.Errorf("get vacancy %s: %w", id, err)
	}

	var vacancy Vacancy
	if err := mapstructure.Decode(raw, &vacancy); err != nil {
		return nil, fmt.Errorf("decode vacancy %s: %w", id, err)
	}

	return &vacancy, nil
}

// ParseVacancyID accepts a bare id or a vacancy URL such as https://hh.ru/vacancy/123.
func ParseVacancyID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("vacancy id is required")
	}

	if strings.Contains(ref, "/") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("parse vacancy url: %w", err)
		}
		ref = path.Base(strings.TrimRight(u.Path, "/"))
	}

	for _, r := range ref {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("invalid vacancy id: %q", ref)
		}
	}

	return ref, nil
}

// JobDescription renders the vacancy as plain text for the evaluation prompt.
func (v *Vacancy) JobDescription() string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(v.Name))
	if v.Employer.Name != "" {
		fmt.Fprintf(&b, " at %s", strings.TrimSpace(v.Employer.Name))
	}
	b.WriteString("\n")

	if v.Experience.Name != "" {
		fmt.Fprintf(&b, "Experience: %s\n", v.Experience.Name)
	}

	if len(v.KeySkills) > 0 {
		skills := make([]string, 0, len(v.KeySkills))
		for _, s := range v.KeySkills {
			if name := strings.TrimSpace(s.Name); name != "" {
				skills = append(skills, name)
			}
		}
		if len(skills) > 0 {
			fmt.Fprintf(&b, "Key skills: %s\n", strings.Join(skills, ", "))
		}
	}

	if text := htmlToText(v.Description); text != "" {
		b.WriteString("\n")
		b.WriteString(text)
	}

	return strings.TrimSpace(b.String())
}
