package origin

import "github.com/dmitrijs2005/casely/internal/server/models"

const (
	ListPath   = "/api/contract/list"
	DetailPath = "/api/contract/detail"
	ChatsPath  = "/api/chat/list"
)

// Business kinds kept by the list filter.
var BusinessKinds = []string{"매뉴얼", "규정지침 + 매뉴얼"}

type checkData struct {
	TeamTask string `json:"teamTask"`
}

type listSort struct {
	ColumnType string `json:"columnType"`
	Order      string `json:"order"`
}

type listTempMap struct {
	IsAbroad   bool     `json:"isAbroad"`
	IsLawyer   bool     `json:"isLawyer"`
	CategoryID int      `json:"categoryId"`
	Sort       listSort `json:"sort"`
	Status     string   `json:"status"`
}

type listRequest struct {
	Token         string         `json:"_bak_t"`
	SchEpicID     int            `json:"schEpicId"`
	CheckData     checkData      `json:"checkData"`
	PageNum       int            `json:"pageNum"`
	NumberPerPage int            `json:"numberPerPage"`
	Abroad        bool           `json:"abroad"`
	Filter        map[string]any `json:"filter"`
	TempMapObj    listTempMap    `json:"tempMapObj"`
}

type contractRef struct {
	ID int64 `json:"id"`
}

type detailRequest struct {
	Token     string      `json:"_bak_t"`
	SchEpicID int         `json:"schEpicId"`
	CheckData checkData   `json:"checkData"`
	Contract  contractRef `json:"contract"`
}

type entityRef struct {
	EntityID int64 `json:"entityId"`
}

type chatsRequest struct {
	Token     string    `json:"_bak_t"`
	SchEpicID int       `json:"schEpicId"`
	CheckData checkData `json:"checkData"`
	AppType   string    `json:"appType"`
	TempMap   entityRef `json:"tempMap"`
}

func newListRequest(c models.Credential, page, pageSize int) listRequest {
	return listRequest{
		Token:         c.Token,
		SchEpicID:     -1,
		CheckData:     checkData{TeamTask: c.PrincipalID},
		PageNum:       page,
		NumberPerPage: pageSize,
		Filter:        map[string]any{},
		TempMapObj: listTempMap{
			CategoryID: 65,
			Sort:       listSort{ColumnType: "viewCode", Order: "desc"},
			Status:     "ALL",
		},
	}
}

func newDetailRequest(c models.Credential, id int64) detailRequest {
	return detailRequest{
		Token:     c.Token,
		SchEpicID: -1,
		CheckData: checkData{TeamTask: c.PrincipalID},
		Contract:  contractRef{ID: id},
	}
}

func newChatsRequest(c models.Credential, id int64) chatsRequest {
	return chatsRequest{
		Token:     c.Token,
		SchEpicID: -1,
		CheckData: checkData{TeamTask: c.PrincipalID},
		AppType:   "CONTRACT",
		TempMap:   entityRef{EntityID: id},
	}
}
