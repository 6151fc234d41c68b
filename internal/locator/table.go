package locator

import (
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var embedded embed.FS

// Table is the locator data for one platform. Adapters and the apply state
// machine read it; they hold no selectors of their own.
type Table struct {
	Platform string `yaml:"platform"`
	// SearchURL may contain {keyword}, {location} and {offset}.
	SearchURL string `yaml:"search_url"`
	// EasyApplyFilter is appended to the search URL when only easy-apply
	// postings are wanted.
	EasyApplyFilter string `yaml:"easy_apply_filter,omitempty"`

	Search  SearchSection  `yaml:"search"`
	Details DetailsSection `yaml:"details"`
	Apply   ApplySection   `yaml:"apply"`
}

// SearchSection locates result cards and the fields inside each card.
type SearchSection struct {
	Card      Chain  `yaml:"card"`
	Title     Chain  `yaml:"title"`
	Company   Chain  `yaml:"company"`
	Location  Chain  `yaml:"location"`
	Link      Chain  `yaml:"link"`
	LinkAttr  string `yaml:"link_attr,omitempty"`
	EasyApply Chain  `yaml:"easy_apply,omitempty"`
	// ScrollContainer is the results list scrolled to load more cards.
	ScrollContainer string `yaml:"scroll_container,omitempty"`
	MaxScrolls      int    `yaml:"max_scrolls,omitempty"`
}

// DetailsSection locates content on a posting page.
type DetailsSection struct {
	Description Chain `yaml:"description"`
	EasyApply   Chain `yaml:"easy_apply"`
}

// ApplySection locates the parts of an in-site application flow.
type ApplySection struct {
	Trigger        Chain          `yaml:"trigger"`
	Applied        Chain          `yaml:"applied"`
	Modal          Chain          `yaml:"modal"`
	Fields         FieldSelectors `yaml:"fields"`
	PrimaryAction  Chain          `yaml:"primary_action"`
	Unfollow       Chain          `yaml:"unfollow,omitempty"`
	Errors         Chain          `yaml:"errors"`
	Success        Chain          `yaml:"success"`
	Dismiss        Chain          `yaml:"dismiss"`
	DiscardConfirm Chain          `yaml:"discard_confirm"`
}

// FieldSelectors are plain CSS selectors evaluated inside the modal. Group
// matches one question; the others are evaluated inside a group.
type FieldSelectors struct {
	Group    string `yaml:"group"`
	Label    string `yaml:"label"`
	Text     string `yaml:"text"`
	Select   string `yaml:"select"`
	Radio    string `yaml:"radio"`
	Option   string `yaml:"option"`
	Checkbox string `yaml:"checkbox"`
}

func (t *Table) defaults() {
	if t.Search.LinkAttr == "" {
		t.Search.LinkAttr = "href"
	}
	if t.Search.MaxScrolls <= 0 {
		t.Search.MaxScrolls = 10
	}
}

// SearchPage renders the search URL for a query.
func (t Table) SearchPage(keyword, location string, offset int, easyApplyOnly bool) string {
	r := strings.NewReplacer(
		"{keyword}", url.QueryEscape(keyword),
		"{location}", url.QueryEscape(location),
		"{offset}", strconv.Itoa(offset),
	)
	u := r.Replace(t.SearchURL)
	if easyApplyOnly && t.EasyApplyFilter != "" {
		u += t.EasyApplyFilter
	}
	return u
}

// Validate reports tables that cannot drive an adapter.
func (t Table) Validate() error {
	switch {
	case t.Platform == "":
		return fmt.Errorf("locator table: platform is required")
	case t.SearchURL == "":
		return fmt.Errorf("locator table %s: search_url is required", t.Platform)
	case len(t.Search.Card) == 0:
		return fmt.Errorf("locator table %s: search.card is required", t.Platform)
	case len(t.Apply.Trigger) == 0:
		return fmt.Errorf("locator table %s: apply.trigger is required", t.Platform)
	}
	return nil
}

// Tables is a set of locator tables keyed by lower-cased platform name.
type Tables map[string]Table

// Get returns the table for platform, case-insensitively.
func (ts Tables) Get(platform string) (Table, bool) {
	t, ok := ts[strings.ToLower(platform)]
	return t, ok
}

// Platforms returns the platform names in sorted order.
func (ts Tables) Platforms() []string {
	names := make([]string, 0, len(ts))
	for _, t := range ts {
		names = append(names, t.Platform)
	}
	sort.Strings(names)
	return names
}

type tableFile struct {
	Tables []Table `yaml:"tables"`
}

// Defaults returns the tables shipped with the binary.
func Defaults() (Tables, error) {
	out := Tables{}
	files, err := fs.Glob(embedded, "tables/*.yaml")
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		data, err := embedded.ReadFile(f)
		if err != nil {
			return nil, err
		}
		var t Table
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("locator: parse %s: %w", path.Base(f), err)
		}
		if err := out.add(t); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Load returns the shipped tables overlaid with the tables in the YAML file
// at overridePath. A table in the file replaces the shipped one for the same
// platform. An empty path returns the defaults.
func Load(overridePath string) (Tables, error) {
	ts, err := Defaults()
	if err != nil {
		return nil, err
	}
	if overridePath == "" {
		return ts, nil
	}

	data, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, fmt.Errorf("locator: read %s: %w", overridePath, err)
	}
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("locator: parse %s: %w", overridePath, err)
	}
	for _, t := range f.Tables {
		if err := ts.add(t); err != nil {
			return nil, err
		}
	}
	return ts, nil
}

func (ts Tables) add(t Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t.defaults()
	ts[strings.ToLower(t.Platform)] = t
	return nil
}
