package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"filmpalette-backend/internal/diary"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"
)

// ScrapeProcedure is the Connect procedure mirroring GET /scrape.
const ScrapeProcedure = "/filmpalette.v1.PaletteService/Scrape"

type ScrapeRequest struct {
	Username string `json:"username"`
	Year     int    `json:"year"`
	// Mode is "day" (default) or "film".
	Mode string `json:"mode,omitempty"`
}

type ScrapeResponse struct {
	RunId    string          `json:"runId"`
	Mode     string          `json:"mode"`
	Pages    int             `json:"pages"`
	Days     []DayRecord     `json:"days,omitempty"`
	Films    []FilmRecord    `json:"films,omitempty"`
	Failures []FailureRecord `json:"failures"`
}

// JSONCodec lets Connect carry plain Go structs as JSON, there are no
// generated messages in this service.
type JSONCodec struct{}

func (JSONCodec) Name() string {
	return "json"
}

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}

func connectCode(err error) connect.Code {
	switch StatusOf(err) {
	case http.StatusBadRequest:
		return connect.CodeInvalidArgument
	case http.StatusGatewayTimeout:
		return connect.CodeDeadlineExceeded
	case http.StatusBadGateway:
		return connect.CodeUnavailable
	}
	return connect.CodeInternal
}

func (s *Service) scrapeRPC(ctx context.Context, req *connect.Request[ScrapeRequest]) (*connect.Response[ScrapeResponse], error) {
	mode, err := diary.ParseMode(req.Msg.Mode)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	result, err := s.Scrape(ctx, Request{
		Username: req.Msg.Username,
		Year:     req.Msg.Year,
		Mode:     mode,
	})
	if err != nil {
		code := connectCode(err)
		if code == connect.CodeInternal {
			s.tel.ReportBroken(report_http_failed, err)
			return nil, connect.NewError(code, errors.New("internal error"))
		}
		return nil, connect.NewError(code, err)
	}

	res := &ScrapeResponse{
		RunId:    result.RunId,
		Mode:     mode.String(),
		Pages:    result.Pages,
		Failures: FailureRecords(result.Failures),
	}
	if mode == diary.ModeFilm {
		res.Films = FilmRecords(result.Entries)
	} else {
		res.Days = DayRecords(result.Entries)
	}
	return connect.NewResponse(res), nil
}

func (s *Service) connectHandler() (string, http.Handler, error) {
	otelInterceptor, err := otelconnect.NewInterceptor()
	if err != nil {
		return "", nil, err
	}
	handler := connect.NewUnaryHandler(
		ScrapeProcedure,
		s.scrapeRPC,
		connect.WithCodec(JSONCodec{}),
		connect.WithInterceptors(otelInterceptor),
	)
	return ScrapeProcedure, handler, nil
}
