package handler

import (
	"strconv"

	"evo_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// pathID reads a positive int64 path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	return parseID(c.Param(name), name)
}

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errorx.Newf(errorx.CodeInvalidParam, "%s must be a numeric id", name)
	}
	return id, nil
}

func parseIDs(raw []string, name string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := parseID(s, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// optionalID parses an optional numeric id; "" gives nil.
func optionalID(raw, name string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(raw, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
