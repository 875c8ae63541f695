package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/shopdash/pkg/backend"
	"github.com/example/shopdash/pkg/forms"
	"github.com/example/shopdash/pkg/listview"
	"github.com/example/shopdash/pkg/models"
	"github.com/example/shopdash/pkg/notify"
	"github.com/example/shopdash/pkg/repository"
)

// mutation is a backend write issued on behalf of a view.
type mutation struct {
	view     string
	noun     string
	action   string
	entityID string
	run      func(ctx context.Context, client *backend.Client) error
}

// mutate runs m through its view when the view is mounted, so the view
// refetches on success. Otherwise it calls the backend directly and only
// toasts. The returned error is the backend's, never the refetch's.
func (g *Gateway) mutate(c *gin.Context, m mutation) error {
	sess := currentSession(c)
	ctx := c.Request.Context()
	client := g.clientFor(sess)

	var runErr error
	run := func(ctx context.Context) error {
		runErr = m.run(ctx, client)
		return runErr
	}

	v, err := g.storeFor(sess).View(m.view)
	viaView := err == nil && v.Mounted()
	if viaView {
		if err := v.Mutate(ctx, m.action, run); errors.Is(err, listview.ErrNotMounted) {
			// unmounted in between; the write has not been sent yet
			g.logger.Debug("View closed before mutation", zap.String("view", m.view))
			viaView = false
		}
	}
	if !viaView {
		run(ctx)
		t := notify.Toast{Session: sess.ID, Level: notify.LevelSuccess, Message: fmt.Sprintf("%s %sd successfully", m.noun, m.action)}
		if runErr != nil {
			t.Level, t.Message = notify.LevelError, backend.ToastMessage(runErr)
		}
		g.notifier.Notify(ctx, t)
	}
	g.record(sess, m.view, m.action, m.entityID, runErr)
	return runErr
}

func (g *Gateway) createProduct(c *gin.Context) {
	var form forms.Product
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var created *models.Product
	err := g.mutate(c, mutation{
		view:   listview.AdminProducts,
		noun:   "Product",
		action: "create",
		run: func(ctx context.Context, client *backend.Client) (err error) {
			created, err = client.CreateProduct(ctx, form)
			return err
		},
	})
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": created})
}

func (g *Gateway) updateProduct(c *gin.Context) {
	var form forms.Product
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")
	var updated *models.Product
	err := g.mutate(c, mutation{
		view:     listview.AdminProducts,
		noun:     "Product",
		action:   "update",
		entityID: id,
		run: func(ctx context.Context, client *backend.Client) (err error) {
			updated, err = client.UpdateProduct(ctx, id, form)
			return err
		},
	})
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": updated})
}

// createBanner takes multipart/form-data with title, link, active and an
// image file.
func (g *Gateway) createBanner(c *gin.Context) {
	form := forms.Banner{
		Title: c.PostForm("title"),
		Link:  c.PostForm("link"),
	}
	form.Active, _ = strconv.ParseBool(c.DefaultPostForm("active", "true"))
	if fh, err := c.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image"})
			return
		}
		defer f.Close()
		form.Image, form.Filename = f, fh.Filename
	}

	var created *models.Banner
	err := g.mutate(c, mutation{
		noun:   "Banner",
		action: "create",
		run: func(ctx context.Context, client *backend.Client) (err error) {
			created, err = client.CreateBanner(ctx, form)
			return err
		},
	})
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"banner": created})
}

func (g *Gateway) createOrder(c *gin.Context) {
	var form forms.Order
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var created *models.Order
	err := g.mutate(c, mutation{
		view:   listview.UserOrders,
		noun:   "Order",
		action: "create",
		run: func(ctx context.Context, client *backend.Client) (err error) {
			created, err = client.CreateOrder(ctx, form)
			return err
		},
	})
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": created})
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	var form forms.StatusUpdate
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")
	err := g.mutate(c, mutation{
		view:     ordersViewFor(currentSession(c)),
		noun:     "Order",
		action:   "update",
		entityID: id,
		run: func(ctx context.Context, client *backend.Client) error {
			return client.UpdateOrderStatus(ctx, id, form)
		},
	})
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": form.Status})
}

func ordersViewFor(sess *repository.Session) string {
	if sess.Role == roleAdmin {
		return listview.AdminOrders
	}
	return listview.SellerOrders
}
