package handlers

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the order, product and customer endpoints on g
func RegisterRoutes(g *echo.Group, orders *OrderHandlers, products *ProductHandlers, customers *CustomerHandlers) {
	g.POST("/orders", orders.CreateOrder)
	g.GET("/orders", orders.GetOrders)
	g.GET("/orders/:id", orders.GetOrderByID)
	g.PUT("/orders/:id/status", orders.UpdateOrderStatus)

	g.POST("/products", products.CreateProduct)
	g.GET("/products", products.ListProducts)
	g.GET("/products/low-stock", products.GetLowStock)
	g.GET("/products/:id", products.GetProduct)
	g.PUT("/products/:id", products.UpdateProduct)
	g.DELETE("/products/:id", products.DeleteProduct)

	g.POST("/customers", customers.CreateCustomer)
	g.GET("/customers", customers.ListCustomers)
	g.GET("/customers/:id", customers.GetCustomer)
	g.PUT("/customers/:id", customers.UpdateCustomer)
	g.DELETE("/customers/:id", customers.DeleteCustomer)
}
