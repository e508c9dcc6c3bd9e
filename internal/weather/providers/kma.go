package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/short-term-forecast/internal/weather"
)

// DefaultKMABaseURL is the village forecast service of the KMA open API.
const DefaultKMABaseURL = "http://apis.data.go.kr/1360000/VilageFcstInfoService_2.0"

const maxPages = 10

// ResultCode is the status embedded in every KMA response header.
type ResultCode string

const (
	ResultNormalService           ResultCode = "00"
	ResultApplicationError        ResultCode = "01"
	ResultDBError                 ResultCode = "02"
	ResultNoData                  ResultCode = "03"
	ResultHTTPError               ResultCode = "04"
	ResultServiceTimeout          ResultCode = "05"
	ResultInvalidRequestParam     ResultCode = "10"
	ResultNoMandatoryRequestParam ResultCode = "11"
	ResultNoOpenAPIService        ResultCode = "12"
	ResultServiceAccessDenied     ResultCode = "20"
	ResultTemporarilyDisabledKey  ResultCode = "21"
	ResultRequestLimitExceeded    ResultCode = "22"
	ResultServiceKeyNotRegistered ResultCode = "30"
	ResultDeadlineExpired         ResultCode = "31"
	ResultUnregisteredIP          ResultCode = "32"
	ResultUnsignedCall            ResultCode = "33"
	ResultUnknownError            ResultCode = "99"
)

var resultCodeNames = map[ResultCode]string{
	ResultNormalService:           "NORMAL_SERVICE",
	ResultApplicationError:        "APPLICATION_ERROR",
	ResultDBError:                 "DB_ERROR",
	ResultNoData:                  "NODATA_ERROR",
	ResultHTTPError:               "HTTP_ERROR",
	ResultServiceTimeout:          "SERVICETIME_OUT",
	ResultInvalidRequestParam:     "INVALID_REQUEST_PARAMETER_ERROR",
	ResultNoMandatoryRequestParam: "NO_MANDATORY_REQUEST_PARAMETERS_ERROR",
	ResultNoOpenAPIService:        "NO_OPENAPI_SERVICE_ERROR",
	ResultServiceAccessDenied:     "SERVICE_ACCESS_DENIED_ERROR",
	ResultTemporarilyDisabledKey:  "TEMPORARILY_DISABLE_THE_SERVICEKEY_ERROR",
	ResultRequestLimitExceeded:    "LIMITED_NUMBER_OF_SERVICE_REQUESTS_EXCEEDS_ERROR",
	ResultServiceKeyNotRegistered: "SERVICE_KEY_IS_NOT_REGISTERED_ERROR",
	ResultDeadlineExpired:         "DEADLINE_HAS_EXPIRED_ERROR",
	ResultUnregisteredIP:          "UNREGISTERED_IP_ERROR",
	ResultUnsignedCall:            "UNSIGNED_CALL_ERROR",
	ResultUnknownError:            "UNKNOWN_ERROR",
}

// ParseResultCode maps a raw code onto the table; anything unrecognised is ResultUnknownError.
func ParseResultCode(s string) ResultCode {
	if _, ok := resultCodeNames[ResultCode(s)]; ok {
		return ResultCode(s)
	}
	return ResultUnknownError
}

func (c ResultCode) String() string {
	if name, ok := resultCodeNames[c]; ok {
		return name
	}
	return resultCodeNames[ResultUnknownError]
}

// KMAProvider implements weather.Provider for the KMA village forecast API.
type KMAProvider struct {
	name       string
	serviceKey string
	baseURL    string
	numOfRows  int
	client     *resilientClient
}

// NewKMAProvider creates a provider. serviceKey may be given either raw or
// already URL-encoded, as the portal hands out both forms.
func NewKMAProvider(client *http.Client, serviceKey, baseURL string, numOfRows int) *KMAProvider {
	if baseURL == "" {
		baseURL = DefaultKMABaseURL
	}
	if numOfRows <= 0 {
		numOfRows = 1000
	}
	return &KMAProvider{
		name:       "kma",
		serviceKey: serviceKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		numOfRows:  numOfRows,
		client:     newResilientClient("kma", client, DefaultBackoff),
	}
}

func (p *KMAProvider) Name() string {
	return p.name
}

// kmaResponse mirrors the JSON envelope of getVilageFcst.
type kmaResponse struct {
	Response struct {
		Header struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body *struct {
			DataType   string   `json:"dataType"`
			Items      kmaItems `json:"items"`
			PageNo     int      `json:"pageNo"`
			NumOfRows  int      `json:"numOfRows"`
			TotalCount int      `json:"totalCount"`
		} `json:"body"`
	} `json:"response"`
}

type kmaItem struct {
	BaseDate  string `json:"baseDate"`
	BaseTime  string `json:"baseTime"`
	Category  string `json:"category"`
	FcstDate  string `json:"fcstDate"`
	FcstTime  string `json:"fcstTime"`
	FcstValue string `json:"fcstValue"`
	NX        int    `json:"nx"`
	NY        int    `json:"ny"`
}

// kmaItems accepts both {"item":[...]} and the empty string the API sends
// when a page has no rows.
type kmaItems struct {
	Item []kmaItem `json:"item"`
}

func (i *kmaItems) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || data[0] == '"' || bytes.Equal(data, []byte("null")) {
		i.Item = nil
		return nil
	}
	type plain kmaItems
	return json.Unmarshal(data, (*plain)(i))
}

// kmaGatewayError is the XML document the API gateway returns for key and
// quota problems, regardless of the requested dataType.
type kmaGatewayError struct {
	XMLName xml.Name `xml:"OpenAPI_ServiceResponse"`
	Header  struct {
		ErrMsg           string `xml:"errMsg"`
		ReturnAuthMsg    string `xml:"returnAuthMsg"`
		ReturnReasonCode string `xml:"returnReasonCode"`
	} `xml:"cmmMsgHeader"`
}

// Fetch returns every record of the requested issuance, walking pages until
// totalCount records have been collected.
func (p *KMAProvider) Fetch(ctx context.Context, req weather.FetchRequest) ([]weather.Record, error) {
	if p.serviceKey == "" {
		return nil, weather.TransportFailure(fmt.Errorf("kma service key is not configured"))
	}

	var records []weather.Record
	for page := 1; page <= maxPages; page++ {
		items, total, err := p.fetchPage(ctx, req, page)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			records = append(records, weather.Record{
				Date:     it.FcstDate,
				Time:     it.FcstTime,
				Category: weather.Classify(it.Category),
				Value:    it.FcstValue,
			})
		}
		if len(items) == 0 || len(records) >= total {
			break
		}
	}

	if len(records) == 0 {
		return nil, weather.EmptyDataFailure()
	}
	return records, nil
}

func (p *KMAProvider) fetchPage(ctx context.Context, req weather.FetchRequest, page int) ([]kmaItem, int, error) {
	newRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("base_date", req.BaseDate)
		values.Set("base_time", req.BaseTime)
		values.Set("nx", strconv.Itoa(req.NX))
		values.Set("ny", strconv.Itoa(req.NY))
		values.Set("dataType", "JSON")
		values.Set("numOfRows", strconv.Itoa(p.numOfRows))
		values.Set("pageNo", strconv.Itoa(page))

		// The service key is appended verbatim; re-encoding an encoded key breaks it.
		u := fmt.Sprintf("%s/getVilageFcst?serviceKey=%s&%s", p.baseURL, p.encodedKey(), values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := p.client.do(ctx, newRequest)
	if err != nil {
		return nil, 0, weather.TransportFailure(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, weather.TransportFailure(fmt.Errorf("read kma response: %w", err))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return nil, 0, decodeGatewayError(trimmed)
	}

	var payload kmaResponse
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, 0, weather.TransportFailure(fmt.Errorf("decode kma response: %w", err))
	}

	header := payload.Response.Header
	if code := ParseResultCode(header.ResultCode); code != ResultNormalService {
		return nil, 0, resultCodeFailure(code, header.ResultMsg)
	}
	if payload.Response.Body == nil {
		return nil, 0, nil
	}
	return payload.Response.Body.Items.Item, payload.Response.Body.TotalCount, nil
}

func (p *KMAProvider) encodedKey() string {
	if strings.Contains(p.serviceKey, "%") {
		return p.serviceKey
	}
	return url.QueryEscape(p.serviceKey)
}

func decodeGatewayError(body []byte) error {
	var gw kmaGatewayError
	if err := xml.Unmarshal(body, &gw); err != nil {
		return weather.TransportFailure(fmt.Errorf("decode kma gateway response: %w", err))
	}
	code := ParseResultCode(gw.Header.ReturnReasonCode)
	msg := gw.Header.ReturnAuthMsg
	if msg == "" {
		msg = gw.Header.ErrMsg
	}
	return resultCodeFailure(code, msg)
}

// resultCodeFailure maps a non-normal result code onto a weather.Failure.
// NODATA means the slot has not been published yet.
func resultCodeFailure(code ResultCode, msg string) error {
	if code == ResultNoData {
		return weather.EmptyDataFailure()
	}
	return weather.APIStatusFailure(code.String(), msg)
}

var _ weather.Provider = (*KMAProvider)(nil)
