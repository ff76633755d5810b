package pipeline

// Prompt is the fixed instruction sent with every capture.
const Prompt = `Analyze this fridge image and identify visible items.
Respond ONLY with valid JSON in this exact format:
{
  "items": [
    {
      "type": "string",      // Basic category (e.g., "Milk", "Juice", "Yogurt", "Leftovers")
      "brand": "string",     // Brand if clearly visible, "Unknown" if not
      "quantity": {
        "count": number,     // Number of containers
        "size": "string"     // Container size if visible (e.g., "1 gallon", "32 oz", "Unknown")
      },
      "confidence": "string" // "High", "Medium", or "Low" based on visibility/clarity
    }
  ]
}`
