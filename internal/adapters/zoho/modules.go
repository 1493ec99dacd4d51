package zoho

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/email-crm-sync/internal/cache"
	"github.com/mikey/email-crm-sync/internal/core"
)

// listModules returns the org's module descriptors, served from the cache
// when fresh.
func (c *Client) listModules(ctx context.Context) ([]moduleMeta, error) {
	if cached, ok := c.metadata.Get(cache.PartitionModules, "all"); ok {
		return cached.([]moduleMeta), nil
	}

	var resp modulesResponse
	if _, err := c.doJSON(ctx, http.MethodGet, "/settings/modules", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}

	c.metadata.Put(cache.PartitionModules, "all", resp.Modules)
	c.logger.Debug("Module metadata refreshed",
		zap.Int("modules", len(resp.Modules)))
	return resp.Modules, nil
}

// listFields returns a module's field descriptors, served from the cache
// when fresh.
func (c *Client) listFields(ctx context.Context, module string) ([]fieldMeta, error) {
	if cached, ok := c.metadata.Get(cache.PartitionFields, module); ok {
		return cached.([]fieldMeta), nil
	}

	path := "/settings/fields?module=" + url.QueryEscape(module)
	var resp fieldsResponse
	if _, err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list fields for %s: %w", module, err)
	}

	c.metadata.Put(cache.PartitionFields, module, resp.Fields)
	c.logger.Debug("Field metadata refreshed",
		zap.String("module", module),
		zap.Int("fields", len(resp.Fields)))
	return resp.Fields, nil
}

// HasField reports whether the module defines a field with the given API
// name. Lookups hit the metadata cache, so calling this per search term is
// cheap.
func (c *Client) HasField(ctx context.Context, module, apiName string) (bool, error) {
	fields, err := c.listFields(ctx, module)
	if err != nil {
		return false, err
	}
	for _, field := range fields {
		if strings.EqualFold(field.APIName, apiName) {
			return true, nil
		}
	}
	return false, nil
}

// CheckHealth verifies the token works and the target module is visible over
// the API.
func (c *Client) CheckHealth(ctx context.Context, module string) error {
	if _, err := c.doJSON(ctx, http.MethodGet, "/org", nil, nil); err != nil {
		return fmt.Errorf("org lookup failed: %w", err)
	}

	modules, err := c.listModules(ctx)
	if err != nil {
		return err
	}
	for _, m := range modules {
		if strings.EqualFold(m.APIName, module) {
			if !m.APISupported {
				return fmt.Errorf("module %s is not api-accessible: %w", module, core.ErrPermission)
			}
			return nil
		}
	}
	return fmt.Errorf("module %s not found in org: %w", module, core.ErrNotFound)
}
