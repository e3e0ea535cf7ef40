package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const apiDocs = `mediahub API v1

Users  /api/v1/user
  POST   /signup                 create an account and start a session
  POST   /login                  start a session
  POST   /logout                 clear the session cookie
  POST   /forgot-password        mail a reset link (valid 10 minutes)
  PATCH  /reset-password/:token  set a new password with a reset token
  PATCH  /update-password        change password (auth)
  GET    /me                     current user (auth)
  PATCH  /update-me              change name or email (auth)
  DELETE /delete-me              deactivate own account (auth)
  GET    /                       list users (auth)
  POST   /                       create user (admin)
  GET    /:id                    get user (auth)
  PATCH  /:id                    update user (admin)
  DELETE /:id                    deactivate, or ?force=true to remove (admin, guide)

Media  /api/v1/media (auth)
  GET    /                       list; filter with field=value or field[gte|gt|lte|lt]=value,
                                 sort=-rating,price  fields=name,price  page=2  limit=10
  POST   /                       create
  GET    /top-5                  five best rated items
  GET    /media-stats            ?groupBy=mediaType|category|creator&sort=avgRating
  GET    /:id                    get
  PATCH  /:id                    partial update, send "version" to guard against lost updates
  DELETE /:id                    remove (admin, guide)

Send the session token as "Authorization: Bearer <token>".
`

func Docs(ctx *gin.Context) {
	ctx.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(apiDocs))
}
