package rules

// DefaultRules is the built-in catalogue for Argentine personal finance.
// Brand rules are strong; generic words are weaker so the LLM can refine them.
func DefaultRules() []Rule {
	return []Rule{
		// Supermercado
		{Name: "super-brand", Category: "Supermercado", Strength: 0.9,
			Pattern: `\b(coto|carrefour|jumbo|disco|changomas|la anonima|walmart|chango mas|libertad|makro|vital|maxiconsumo)\b`},
		{Name: "super-generic", Category: "Supermercado", Strength: 0.65,
			Pattern: `\b(supermercado|super|almacen|autoservicio|verduleria|carniceria|dietetica|mayorista)\b`},

		// Delivery & Restaurantes
		{Name: "delivery-app", Category: "Delivery", Strength: 0.9,
			Pattern: `\b(pedidosya|rappi|uber eats|glovo)\b`},
		{Name: "fastfood-brand", Category: "Restaurantes", Strength: 0.88,
			Pattern: `\b(mcdonalds|burger king|starbucks|mostaza|havanna|cafe martinez|freddo|kfc|subway)\b`},
		{Name: "restaurant-generic", Category: "Restaurantes", Strength: 0.68,
			Pattern: `\b(restaurante?|resto|parrilla|pizzeria|cafeteria|bar|heladeria|confiteria|sushi|bodegon)\b`},

		// Transporte & Combustible
		{Name: "ride-hailing", Category: "Transporte", Strength: 0.88,
			Pattern: `\b(uber|cabify|didi|beat)\b`},
		{Name: "public-transport", Category: "Transporte", Strength: 0.9,
			Pattern: `\b(sube|subte|colectivo|tren|trenes argentinos|peaje|ausa|autopista|estacionamiento)\b`},
		{Name: "fuel-brand", Category: "Combustible", Strength: 0.9,
			Pattern: `\b(ypf|shell|axion|puma energy|gulf)\b`},
		{Name: "fuel-generic", Category: "Combustible", Strength: 0.7,
			Pattern: `\b(nafta|combustible|estacion de servicio|gnc)\b`},

		// Servicios
		{Name: "utility-brand", Category: "Servicios", Strength: 0.92,
			Pattern: `\b(edenor|edesur|metrogas|naturgy|aysa|camuzzi|absa|epec|telecom|personal flow|movistar|claro|fibertel|telecentro|iplan)\b`},
		{Name: "utility-generic", Category: "Servicios", Strength: 0.7,
			Pattern: `\b(luz|gas|agua|internet|telefono|celular|cable|expensas)\b`},

		// Suscripciones
		{Name: "streaming", Category: "Suscripciones", Strength: 0.93,
			Pattern: `\b(netflix|spotify|disney|hbo max|hbo|youtube|amazon prime|prime video|paramount|star plus|apple com|icloud|google one|chatgpt|openai)\b`},
		{Name: "subscription-generic", Category: "Suscripciones", Strength: 0.6,
			Pattern: `\b(suscripcion|membresia|abono mensual)\b`},

		// Salud
		{Name: "health-brand", Category: "Salud", Strength: 0.9,
			Pattern: `\b(farmacity|osde|swiss medical|galeno|medife|omint|sancor salud|dr ahorro)\b`},
		{Name: "health-generic", Category: "Salud", Strength: 0.72,
			Pattern: `\b(farmacia|medico|clinica|sanatorio|hospital|odontolog\w*|laboratorio|optica|prepaga)\b`},

		// Educación
		{Name: "education", Category: "Educación", Strength: 0.75,
			Pattern: `\b(colegio|escuela|universidad|facultad|instituto|cuota escolar|matricula|curso|udemy|coursera)\b`},

		// Vivienda
		{Name: "housing", Category: "Vivienda", Strength: 0.75,
			Pattern: `\b(alquiler|inmobiliaria|hipoteca|ferreteria|easy|sodimac|pintureria)\b`},

		// Compras
		{Name: "marketplace", Category: "Compras", Strength: 0.8,
			Pattern: `\b(mercadolibre|amazon|tiendanube|garbarino|fravega|musimundo|falabella|zara|h m|adidas|nike|dexter)\b`},

		// Entretenimiento
		{Name: "entertainment", Category: "Entretenimiento", Strength: 0.75,
			Pattern: `\b(cine|cinemark|hoyts|showcase|teatro|recital|ticketek|entradas|steam|playstation|xbox)\b`},

		// Viajes
		{Name: "travel", Category: "Viajes", Strength: 0.85,
			Pattern: `\b(aerolineas|flybondi|jetsmart|latam|despegar|almundo|booking|airbnb|hotel|hostel)\b`},

		// Impuestos
		{Name: "taxes", Category: "Impuestos", Strength: 0.85,
			Pattern: `\b(afip|arca|arba|agip|monotributo|ganancias|iibb|ingresos brutos|abl|impuesto\w*|percepcion)\b`},

		// Transferencias
		{Name: "transfer", Category: "Transferencias", Strength: 0.7,
			Pattern: `\b(transferencia|transf|cvu|cbu|alias)\b`},

		// Ingresos
		{Name: "salary", Category: "Ingresos", Strength: 0.9,
			Pattern: `\b(sueldo|salario|haberes|aguinaldo|honorarios|acreditacion de haberes)\b`},
		{Name: "income-generic", Category: "Ingresos", Strength: 0.65,
			Pattern: `\b(reintegro|devolucion|cobro|intereses ganados|rendimiento|plazo fijo)\b`},
	}
}
