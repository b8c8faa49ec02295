package services

import (
	"bufio"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/utils"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// navLinePattern matches one scheme row of AMFI's semicolon separated NAV
// dump: scheme code, growth-plan ISIN, (skipped reinvestment ISIN and scheme
// name), NAV and date. Rows without a parseable recent date are skipped.
var navLinePattern = regexp.MustCompile(`^([0-9]{6});(.*?);.*?;.*?;([0-9.]+);([0-9]{2}-[a-zA-Z]{3}-(20[2-4][0-9]))$`)

// navServiceImpl implements PriceService over AMFI's published NAV file.
type navServiceImpl struct {
	httpClient http.Client
	navCache   *cache.Cache
	limiter    *rate.Limiter
	sourceURL  string
	cacheTTL   time.Duration
}

// NewNAVService creates the AMFI-backed price service. The HTTP client gets a
// cookie jar; the limiter keeps refreshes apart even when several requests
// race on an expired cache.
func NewNAVService(sourceURL string, cacheTTL time.Duration) PriceService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	client := http.Client{
		Jar:     jar,
		Timeout: 20 * time.Second,
	}

	return &navServiceImpl{
		httpClient: client,
		navCache:   cache.New(cacheTTL, 2*cacheTTL),
		limiter:    rate.NewLimiter(rate.Every(30*time.Second), 1),
		sourceURL:  sourceURL,
		cacheTTL:   cacheTTL,
	}
}

func (s *navServiceImpl) CurrentNAV(isin string) (PriceInfo, bool) {
	if cached, found := s.navCache.Get(isin); found {
		return cached.(PriceInfo), true
	}
	// One lazy refresh when the table has expired or was never loaded.
	if _, loaded := s.navCache.Get("nav_table_loaded"); !loaded {
		if err := s.Refresh(); err != nil {
			logger.L.Warn("NAV refresh failed, falling back to last transaction prices", "error", err)
			return PriceInfo{}, false
		}
		if cached, found := s.navCache.Get(isin); found {
			return cached.(PriceInfo), true
		}
	}
	return PriceInfo{}, false
}

// Refresh downloads and reparses the full NAV table, replacing the cache.
func (s *navServiceImpl) Refresh() error {
	if !s.limiter.Allow() {
		logger.L.Info("NAV refresh throttled, keeping current table")
		return nil
	}
	logger.L.Info("Refreshing NAV table", "url", s.sourceURL)

	resp, err := s.fetchNAVFile(s.sourceURL)
	if err != nil {
		// One retry with a cache-busting query, AMFI's CDN occasionally
		// serves stale error pages.
		retryURL := fmt.Sprintf("%s?t=%d", s.sourceURL, time.Now().Unix())
		resp, err = s.fetchNAVFile(retryURL)
		if err != nil {
			return fmt.Errorf("failed to download NAV file: %w", err)
		}
	}
	defer resp.Body.Close()

	count := 0
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		m := navLinePattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		isin := m[2]
		nav, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}
		date, err := utils.ParseStatementDate(m[4])
		if err != nil {
			continue
		}
		s.navCache.Set(isin, PriceInfo{NAV: nav, Date: date}, s.cacheTTL)
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read NAV file: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("no NAV rows parsed from %s", s.sourceURL)
	}

	s.navCache.Set("nav_table_loaded", true, s.cacheTTL)
	logger.L.Info("NAV table refreshed", "schemeCount", count)
	return nil
}

func (s *navServiceImpl) fetchNAVFile(url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("NAV source returned status %d", resp.StatusCode)
	}
	return resp, nil
}
