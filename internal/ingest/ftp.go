package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher downloads files from the Census FTP archive.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{opts: opts}
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	path = u.Path
	if path == "" {
		return "", "", eris.New("empty path in ftp url")
	}

	return host, path, nil
}

// ftpConnReader wraps an FTP response and connection so that closing the
// reader also closes the FTP response and disconnects from the server.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "quit ftp connection")
	}
	return nil
}

// Download connects to the FTP server, retrieves the file, and returns a
// reader. The caller must close the returned ReadCloser to release the
// connection.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	host, path, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "ftp login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrapf(err, "ftp retrieve %s", path)
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}

// SummarySource serves rent tables from pre-extracted Census summary CSV
// files on the FTP archive. Used instead of the API for bulk tract-level
// loads, where one file retrieval beats tens of thousands of API rows.
// Implements geoadj.RentSource.
type SummarySource struct {
	fetcher *FTPFetcher
	// urlTemplate expands to the summary file location; verbs: year, level.
	// Example: ftp://ftp2.census.gov/acs/summary/%d/rent_%s.csv
	urlTemplate string
}

// NewSummarySource creates a SummarySource over the given URL template.
func NewSummarySource(fetcher *FTPFetcher, urlTemplate string) *SummarySource {
	return &SummarySource{fetcher: fetcher, urlTemplate: urlTemplate}
}

// FetchRentTable downloads and parses the summary file for one geography
// level and year.
func (s *SummarySource) FetchRentTable(ctx context.Context, geoType model.GeographyType, year int) (model.RentTable, error) {
	u := strings.NewReplacer("{year}", strconv.Itoa(year), "{level}", string(geoType)).Replace(s.urlTemplate)

	body, err := s.fetcher.Download(ctx, u)
	if err != nil {
		return nil, eris.Wrapf(err, "summary: download %s", u)
	}
	defer body.Close() //nolint:errcheck

	table, err := ParseRentCSV(body)
	if err != nil {
		return nil, eris.Wrapf(err, "summary: parse %s", u)
	}
	return table, nil
}

// ParseRentCSV parses a rent summary CSV with header
// geo_id,median_rent,national_median_rent into a RentTable.
func ParseRentCSV(r io.Reader) (model.RentTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "rent csv: read header")
	}
	want := []string{"geo_id", "median_rent", "national_median_rent"}
	if len(header) != len(want) {
		return nil, eris.Errorf("rent csv: expected columns %v, got %d columns", want, len(header))
	}
	for i, col := range want {
		if strings.TrimSpace(strings.ToLower(header[i])) != col {
			return nil, eris.Errorf("rent csv: column %d must be %q, got %q", i+1, col, header[i])
		}
	}

	table := make(model.RentTable)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "rent csv: read row")
		}
		line++

		local, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "rent csv: line %d median_rent", line)
		}
		national, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "rent csv: line %d national_median_rent", line)
		}
		table[strings.TrimSpace(record[0])] = model.RentPair{Local: local, National: national}
	}

	if len(table) == 0 {
		return nil, eris.New("rent csv: no data rows")
	}
	return table, nil
}
