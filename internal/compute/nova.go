/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package compute

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-goose/goose/v5/client"
	gooseerrors "github.com/go-goose/goose/v5/errors"
	goosehttp "github.com/go-goose/goose/v5/http"
	"github.com/go-goose/goose/v5/identity"
	"github.com/go-goose/goose/v5/nova"
)

// Credentials identify an account on an OpenStack cloud.
type Credentials struct {
	AuthURL  string
	Username string
	Password string
	Project  string
	Region   string
}

// NovaClient implements Client against OpenStack Nova and the Glance v2
// image service.
type NovaClient struct {
	client client.AuthenticatingClient
	nova   *nova.Client
}

// imageV2 is the subset of a Glance v2 image the reaper reads.
type imageV2 struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (i imageV2) image() *Image {
	return &Image{ID: i.ID, Name: i.Name, Status: i.Status}
}

// NewNovaClient authenticates against the identity endpoint and returns a
// ready client.
func NewNovaClient(creds Credentials) (*NovaClient, error) {
	if creds.AuthURL == "" {
		return nil, fmt.Errorf("missing auth URL")
	}

	cl := client.NewClient(&identity.Credentials{
		URL:        creds.AuthURL,
		User:       creds.Username,
		Secrets:    creds.Password,
		TenantName: creds.Project,
		Region:     creds.Region,
	}, identity.AuthUserPass, nil)

	if err := cl.Authenticate(); err != nil {
		if gooseerrors.IsUnauthorised(err) {
			return nil, fmt.Errorf("authentication failed, check the provider credentials: %w", err)
		}
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	return &NovaClient{
		client: cl,
		nova:   nova.New(cl),
	}, nil
}

// GetServer implements Client.
func (c *NovaClient) GetServer(ctx context.Context, id string) (*Server, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	detail, err := c.nova.GetServer(id)
	if err != nil {
		return nil, wrap(err, "server", id)
	}
	return &Server{ID: detail.Id, Name: detail.Name, Status: detail.Status}, nil
}

// DeleteServer implements Client.
func (c *NovaClient) DeleteServer(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.nova.DeleteServer(id); err != nil {
		return wrap(err, "server", id)
	}
	return nil
}

// GetImage implements Client. Images are looked up and deleted through
// the image service v2 rather than the deprecated compute images proxy
// that goose's glance package uses.
func (c *NovaClient) GetImage(ctx context.Context, id string) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var detail imageV2
	requestData := goosehttp.RequestData{
		RespValue:      &detail,
		ExpectedStatus: []int{http.StatusOK},
	}
	if err := c.client.SendRequest(http.MethodGet, "image", "v2", "images/"+id, &requestData); err != nil {
		return nil, wrap(err, "image", id)
	}
	return detail.image(), nil
}

// DeleteImage implements Client.
func (c *NovaClient) DeleteImage(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	requestData := goosehttp.RequestData{
		ExpectedStatus: []int{http.StatusNoContent, http.StatusOK},
	}
	err := c.client.SendRequest(http.MethodDelete, "image", "v2", "images/"+id, &requestData)
	if err != nil {
		return wrap(err, "image", id)
	}
	return nil
}

// ListFlavors implements Client.
func (c *NovaClient) ListFlavors(ctx context.Context) ([]Flavor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	details, err := c.nova.ListFlavorsDetail()
	if err != nil {
		return nil, fmt.Errorf("failed to list flavors: %w", err)
	}
	flavors := make([]Flavor, 0, len(details))
	for _, d := range details {
		flavors = append(flavors, Flavor{
			ID:    d.Id,
			Name:  d.Name,
			RAM:   d.RAM,
			VCPUs: d.VCPUs,
			Disk:  d.Disk,
		})
	}
	return flavors, nil
}

func wrap(err error, kind, id string) error {
	if gooseerrors.IsNotFound(err) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", kind, id, err)
}
